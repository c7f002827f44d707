// Package sales turns a cart into a persisted sale and adjusts stock.
package sales

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
	"gitlab.connectwisedev.com/pos-service/pkg/cart"
	"gitlab.connectwisedev.com/pos-service/pkg/catalog"
	"gitlab.connectwisedev.com/pos-service/pkg/clients"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/logging"
)

// Commit stages, reported in logs and on StoreUnavailable errors.
const (
	StageRevalidateStock = "revalidate-stock"
	StageResolveClient   = "resolve-client"
	StagePersistSales    = "persist-sales"
	StagePersistStock    = "persist-stock"
	// StagePersistBatch is used instead of the two above when the store
	// writes both collections in one transaction.
	StagePersistBatch = "persist-sales-and-stock"
)

// ISO 8601 in UTC with milliseconds.
const dateLayout = "2006-01-02T15:04:05.000Z"

// Result is what a successful Finalize reports back.
type Result struct {
	SaleID   string          `json:"idVenta"`
	ClientID string          `json:"idCliente"`
	Total    decimal.Decimal `json:"total"`
}

// Finalizer turns a checkout session into a recorded sale. Sale ids it hands
// out are unique within the process.
type Finalizer struct {
	store   kvstore.Store
	clients *clients.Directory
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	lastSale int64
}

// NewFinalizer returns a Finalizer that records sales in store and resolves
// clients through directory.
func NewFinalizer(store kvstore.Store, directory *clients.Directory, logger *zap.Logger) *Finalizer {
	return &Finalizer{
		store:   store,
		clients: directory,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (f *Finalizer) WithClock(now func() time.Time) *Finalizer {
	f.now = now
	return f
}

// nextSaleID returns a millisecond timestamp, strictly increasing within the
// process.
func (f *Finalizer) nextSaleID(now time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ms := now.UnixMilli()
	if ms <= f.lastSale {
		ms = f.lastSale + 1
	}
	f.lastSale = ms
	return strconv.FormatInt(ms, 10)
}

// Finalize validates the session, then records the sale and decrements
// stock. Validation failures leave the session and the store untouched. On
// success the session is reset.
//
// When the store implements kvstore.Batcher the sale and the stock update are
// written together; otherwise they are two writes and a failure between them
// leaves a sale without its stock decrement. The error then carries the stage
// it stopped at.
func (f *Finalizer) Finalize(ctx context.Context, s *Session) (Result, error) {
	if !s.finalizing.TryLock() {
		return Result{}, apperr.New(apperr.KindInvalidInput, "Finalize already in progress for this session")
	}
	defer s.finalizing.Unlock()

	if s.Cart == nil || s.Cart.IsEmpty() || !s.Client.complete() {
		return Result{}, apperr.IncompleteClientData()
	}
	op := s.operationType()
	if !op.Valid() {
		return Result{}, apperr.Newf(apperr.KindInvalidInput, "Unknown operation type %q", op)
	}
	if op == models.OperationDelivery && strings.TrimSpace(s.Delivery.Address) == "" {
		return Result{}, apperr.IncompleteDeliveryData()
	}

	lines := s.Cart.Lines()
	log := f.logger.With(
		zap.String("cedula", s.Client.NationalID),
		zap.String("operation", string(op)),
		zap.Int("lines", len(lines)),
	)

	if err := f.revalidateStock(ctx, lines); err != nil {
		if apperr.Is(err, apperr.KindStoreUnavailable) {
			log.Error("stock revalidation failed", zap.String("stage", StageRevalidateStock), zap.Error(err))
		}
		return Result{}, err
	}

	clientID, created, err := f.clients.FindOrCreate(ctx, s.Client.NationalID, s.Client.FirstName, s.Client.LastName)
	if err != nil {
		log.Error("finalize stopped", zap.String("stage", StageResolveClient), zap.Error(err))
		return Result{}, apperr.WithStage(err, StageResolveClient)
	}
	log = log.With(zap.String("client_id", clientID))
	log.Debug("client resolved", zap.String("stage", StageResolveClient), zap.Bool("created", created))

	now := f.now()
	sale := buildSale(f.nextSaleID(now), now, clientID, op, s.Delivery, lines)
	log = log.With(zap.String("sale_id", sale.ID))

	if batcher, ok := f.store.(kvstore.Batcher); ok {
		err = f.commitBatch(ctx, batcher, sale, lines, log)
	} else {
		err = f.commitSequential(ctx, sale, lines, log)
	}
	if err != nil {
		return Result{}, err
	}

	log.Info("sale finalized", zap.String("total", sale.Total.String()))
	s.Reset()
	return Result{SaleID: sale.ID, ClientID: clientID, Total: sale.Total}, nil
}

// revalidateStock checks every line against a fresh read of the products
// collection. A product missing from the catalog counts as zero stock.
func (f *Finalizer) revalidateStock(ctx context.Context, lines []cart.Line) error {
	products, err := kvstore.LoadCollection[models.Product](ctx, f.store, kvstore.KeyProducts)
	if err != nil {
		return apperr.StoreUnavailable(StageRevalidateStock, err)
	}

	var shortages []apperr.Shortage
	for _, l := range lines {
		available := 0
		if p, ok := catalog.FindProduct(products, l.ProductID); ok {
			available = p.AvailableQuantity
		}
		if l.Quantity > available {
			shortages = append(shortages, apperr.Shortage{
				ProductID:   l.ProductID,
				ProductName: l.Name,
				Requested:   l.Quantity,
				Available:   available,
			})
		}
	}
	if len(shortages) > 0 {
		return apperr.InsufficientStock(shortages...)
	}
	return nil
}

func buildSale(id string, now time.Time, clientID string, op models.OperationType, delivery models.Delivery, lines []cart.Line) models.Sale {
	sale := models.Sale{
		ID:            id,
		Date:          now.UTC().Format(dateLayout),
		ClientID:      clientID,
		Total:         decimal.Zero,
		OperationType: op,
		Details:       make([]models.SaleDetail, len(lines)),
	}
	if op == models.OperationDelivery {
		d := delivery
		sale.Delivery = &d
	}
	for i, l := range lines {
		sale.Details[i] = models.SaleDetail{
			SaleID:    id,
			DetailID:  fmt.Sprintf("%s-%d", id, i),
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		}
		sale.Total = sale.Total.Add(l.Extension())
	}
	return sale
}

// decrementStock subtracts the sold quantities in place.
func decrementStock(products []models.Product, lines []cart.Line, log *zap.Logger) {
	for _, l := range lines {
		found := false
		for i := range products {
			if products[i].ID != l.ProductID {
				continue
			}
			found = true
			left := products[i].AvailableQuantity - l.Quantity
			if left < 0 {
				log.Warn("stock below zero clamped", zap.String("product_id", l.ProductID), zap.Int("computed", left))
				left = 0
			}
			products[i].AvailableQuantity = left
			break
		}
		if !found {
			log.Warn("sold product no longer in catalog", zap.String("product_id", l.ProductID))
		}
	}
}

func (f *Finalizer) commitSequential(ctx context.Context, sale models.Sale, lines []cart.Line, log *zap.Logger) error {
	sales, err := kvstore.LoadCollection[models.Sale](ctx, f.store, kvstore.KeySales)
	if err == nil {
		err = kvstore.SaveCollection(ctx, f.store, kvstore.KeySales, append(sales, sale))
	}
	if err != nil {
		log.Error("finalize stopped, nothing recorded for this sale", zap.String("stage", StagePersistSales), zap.Error(err))
		return apperr.StoreUnavailable(StagePersistSales, err)
	}
	log.Debug("sale recorded", zap.String("stage", StagePersistSales))

	products, err := kvstore.LoadCollection[models.Product](ctx, f.store, kvstore.KeyProducts)
	if err == nil {
		decrementStock(products, lines, log)
		err = kvstore.SaveCollection(ctx, f.store, kvstore.KeyProducts, products)
	}
	if err != nil {
		log.Error("finalize stopped after the sale was recorded, stock not decremented",
			zap.String("stage", StagePersistStock), zap.Error(err))
		return apperr.StoreUnavailable(StagePersistStock, err)
	}
	log.Debug("stock decremented", zap.String("stage", StagePersistStock))
	return nil
}

func (f *Finalizer) commitBatch(ctx context.Context, batcher kvstore.Batcher, sale models.Sale, lines []cart.Line, log *zap.Logger) error {
	fail := func(err error) error {
		log.Error("finalize stopped, nothing recorded for this sale", zap.String("stage", StagePersistBatch), zap.Error(err))
		return apperr.StoreUnavailable(StagePersistBatch, err)
	}

	sales, err := kvstore.LoadCollection[models.Sale](ctx, f.store, kvstore.KeySales)
	if err != nil {
		return fail(err)
	}
	products, err := kvstore.LoadCollection[models.Product](ctx, f.store, kvstore.KeyProducts)
	if err != nil {
		return fail(err)
	}
	decrementStock(products, lines, log)

	salesRaw, err := kvstore.EncodeCollection(append(sales, sale))
	if err != nil {
		return fail(err)
	}
	productsRaw, err := kvstore.EncodeCollection(products)
	if err != nil {
		return fail(err)
	}

	if err := batcher.PutMulti(ctx, map[string][]byte{
		kvstore.KeySales:    salesRaw,
		kvstore.KeyProducts: productsRaw,
	}); err != nil {
		return fail(err)
	}
	log.Debug("sale recorded and stock decremented", zap.String("stage", StagePersistBatch))
	return nil
}
