package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/logging"
)

// ParseProductCSV reads rows in the order id, name, category, price, qty
// after a header line. Invalid rows are logged and skipped.
func ParseProductCSV(r io.Reader, logger *zap.Logger) ([]models.ProductCSV, error) {
	logger = logging.OrNop(logger)

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // short rows are skipped below, not fatal
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV is empty or has only headers")
	}

	var rows []models.ProductCSV
	for i, row := range records[1:] {
		line := i + 2
		if len(row) < 5 {
			logger.Warn("skipping row with insufficient columns", zap.Int("row", line), zap.Strings("values", row))
			continue
		}

		name := strings.TrimSpace(row[1])
		if name == "" {
			logger.Warn("skipping row without a name", zap.Int("row", line))
			continue
		}

		price, err := decimal.NewFromString(strings.TrimSpace(row[3]))
		if err != nil || price.IsNegative() {
			logger.Warn("skipping row with invalid price", zap.Int("row", line), zap.String("price", row[3]))
			continue
		}

		qty, err := strconv.Atoi(strings.TrimSpace(row[4]))
		if err != nil || qty < 0 {
			logger.Warn("skipping row with invalid quantity", zap.Int("row", line), zap.String("qty", row[4]))
			continue
		}

		rows = append(rows, models.ProductCSV{
			ID:         strings.TrimSpace(row[0]),
			Name:       name,
			CategoryID: strings.TrimSpace(row[2]),
			Price:      price,
			Qty:        qty,
		})
	}
	return rows, nil
}
