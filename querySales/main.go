package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/api"
	"gitlab.connectwisedev.com/pos-service/pkg/bootstrap"
	"gitlab.connectwisedev.com/pos-service/pkg/config"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/reports"
)

var (
	app           *bootstrap.App
	views         *reports.Views
	defaultLocale string
	logger        *zap.Logger
)

var headers = api.Headers(http.MethodGet)

func init() {
	var err error
	app, err = bootstrap.New()
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	setup(app.Store, app.Logger, app.Config)
}

func setup(store kvstore.Store, l *zap.Logger, cfg config.Config) {
	logger = l.Named("querySales")
	views = reports.NewViews(store, logger)
	defaultLocale = cfg.DefaultLocale
}

// saleRow is one line of the sales listing.
type saleRow struct {
	ID            string               `json:"idVenta"`
	Date          string               `json:"fecha"`
	DateText      string               `json:"fechaTexto"`
	ClientID      string               `json:"idCliente"`
	ClientName    string               `json:"cliente"`
	OperationType models.OperationType `json:"tipoOperacion"`
	Total         decimal.Decimal      `json:"total"`
	TotalText     string               `json:"totalTexto"`
}

type detailResponse struct {
	reports.SaleDetailView
	DateText  string `json:"fechaTexto"`
	TotalText string `json:"totalTexto"`
}

// handler serves three views selected by query parameters: saleId for one
// sale, buscarCliente for the client picker, and the filtered listing
// otherwise (clientId narrows it to one client's orders).
func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	params := request.QueryStringParameters
	tag := locale(params["lang"], request.Headers["Accept-Language"])

	if err := views.Refresh(ctx); err != nil {
		return api.Error(err, logger, headers), nil
	}

	if text, ok := params["buscarCliente"]; ok {
		return api.JSON(http.StatusOK, views.SearchClients(text), headers), nil
	}

	if id := params["saleId"]; id != "" {
		sale, err := views.Sale(ctx, id)
		if err != nil {
			return api.Error(err, logger, headers), nil
		}
		return api.JSON(http.StatusOK, detailResponse{
			SaleDetailView: views.Detail(sale),
			DateText:       reports.FormatDate(sale.Date, tag, nil),
			TotalText:      reports.FormatAmount(sale.Total, tag),
		}, headers), nil
	}

	var (
		list []models.Sale
		err  error
	)
	if clientID := params["clientId"]; clientID != "" {
		list, err = views.FindSalesByClient(ctx, clientID)
	} else {
		list, err = views.Sales(ctx)
	}
	if err != nil {
		return api.Error(err, logger, headers), nil
	}

	list = views.FilterSales(list, reports.Filter{
		Date:          params["fecha"],
		Client:        params["cliente"],
		OperationType: models.OperationType(params["tipoOperacion"]),
	})

	rows := make([]saleRow, len(list))
	for i, s := range list {
		rows[i] = saleRow{
			ID:            s.ID,
			Date:          s.Date,
			DateText:      reports.FormatDate(s.Date, tag, nil),
			ClientID:      s.ClientID,
			ClientName:    views.ResolveClientName(s.ClientID),
			OperationType: s.OperationType,
			Total:         s.Total,
			TotalText:     reports.FormatAmount(s.Total, tag),
		}
	}
	logger.Info("sales listed", zap.Int("count", len(rows)), zap.String("locale", tag.String()))
	return api.JSON(http.StatusOK, rows, headers), nil
}

// locale prefers the lang parameter, then Accept-Language, then the
// configured default.
func locale(lang, acceptLanguage string) language.Tag {
	for _, v := range []string{lang, acceptLanguage, defaultLocale} {
		if v != "" {
			return reports.MatchLocale(v)
		}
	}
	return language.English
}

func main() {
	defer app.Close()
	lambda.Start(handler)
}
