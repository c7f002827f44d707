package sales

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
	"gitlab.connectwisedev.com/pos-service/pkg/clients"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore/kvstoretest"
)

var fixedNow = time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC)

type fixture struct {
	store     kvstore.Store
	finalizer *Finalizer
	logs      *observer.ObservedLogs
}

func newFixture(t *testing.T, store kvstore.Store, products ...models.Product) *fixture {
	t.Helper()
	require.NoError(t, kvstore.SaveCollection(context.Background(), store, kvstore.KeyProducts, products))

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	f := NewFinalizer(store, clients.NewDirectory(store, logger), logger).
		WithClock(func() time.Time { return fixedNow })
	return &fixture{store: store, finalizer: f, logs: logs}
}

func (fx *fixture) products(t *testing.T) []models.Product {
	t.Helper()
	products, err := kvstore.LoadCollection[models.Product](context.Background(), fx.store, kvstore.KeyProducts)
	require.NoError(t, err)
	return products
}

func (fx *fixture) sales(t *testing.T) []models.Sale {
	t.Helper()
	sales, err := kvstore.LoadCollection[models.Sale](context.Background(), fx.store, kvstore.KeySales)
	require.NoError(t, err)
	return sales
}

func coffee(stock int) models.Product {
	return models.Product{ID: "1", Name: "Café", CategoryID: "1", Price: decimal.NewFromInt(10), AvailableQuantity: stock}
}

func readySession(t *testing.T, products ...models.Product) *Session {
	t.Helper()
	s := NewSession()
	s.Client = ClientForm{NationalID: "555", FirstName: "Ana", LastName: "Gomez"}
	for _, p := range products {
		require.NoError(t, s.Cart.Add(p))
	}
	return s
}

func TestFinalize_PickupScenario(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory(), coffee(2))
	s := readySession(t, coffee(2), coffee(2))
	assert.True(t, s.Cart.Total().Equal(decimal.NewFromInt(20)))

	res, err := fx.finalizer.Finalize(context.Background(), s)
	require.NoError(t, err)

	assert.True(t, res.Total.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "1", res.ClientID)
	assert.Equal(t, "1715956200000", res.SaleID)

	products := fx.products(t)
	assert.Equal(t, 0, products[0].AvailableQuantity)

	sales := fx.sales(t)
	require.Len(t, sales, 1)
	sale := sales[0]
	assert.Equal(t, res.SaleID, sale.ID)
	assert.Equal(t, "2024-05-17T14:30:00.000Z", sale.Date)
	assert.Equal(t, models.OperationPickup, sale.OperationType)
	assert.Nil(t, sale.Delivery)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(20)))
	require.Len(t, sale.Details, 1)
	assert.Equal(t, 2, sale.Details[0].Quantity)
	assert.Equal(t, res.SaleID+"-0", sale.Details[0].DetailID)

	// session reset
	assert.True(t, s.Cart.IsEmpty())
	assert.Equal(t, ClientForm{}, s.Client)
	assert.Equal(t, models.OperationPickup, s.OperationType)

	// stock is now 0 for the next order
	err = s.Cart.Add(products[0])
	assert.True(t, apperr.Is(err, apperr.KindOutOfStock))
}

func TestFinalize_EmptyCartIsIncompleteClientData(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory(), coffee(2))
	s := readySession(t)
	s.SetDelivery("", nil)

	_, err := fx.finalizer.Finalize(context.Background(), s)

	assert.True(t, apperr.Is(err, apperr.KindIncompleteClientData))
}

func TestFinalize_MissingClientField(t *testing.T) {
	for name, form := range map[string]ClientForm{
		"cedula":   {FirstName: "Ana", LastName: "Gomez"},
		"nombre":   {NationalID: "555", LastName: "Gomez"},
		"apellido": {NationalID: "555", FirstName: "Ana", LastName: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(t, kvstore.NewMemory(), coffee(2))
			s := readySession(t, coffee(2))
			s.Client = form

			_, err := fx.finalizer.Finalize(context.Background(), s)

			assert.True(t, apperr.Is(err, apperr.KindIncompleteClientData))
			assert.Equal(t, 1, s.Cart.Len(), "cart stays intact")
		})
	}
}

func TestFinalize_DeliveryNeedsAddress(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory(), coffee(2))
	s := readySession(t, coffee(2))
	s.SetDelivery("", &models.Location{Latitude: 1, Longitude: 2})

	_, err := fx.finalizer.Finalize(context.Background(), s)
	require.True(t, apperr.Is(err, apperr.KindIncompleteDeliveryData))
	assert.Empty(t, fx.sales(t))

	s.SetPickup()
	_, err = fx.finalizer.Finalize(context.Background(), s)
	assert.NoError(t, err)
}

func TestFinalize_DeliveryAttachesLocation(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory(), coffee(5))
	s := readySession(t, coffee(5))
	loc := &models.Location{Latitude: -2.17, Longitude: -79.92}
	s.SetDelivery("Av. 9 de Octubre 100", loc)

	_, err := fx.finalizer.Finalize(context.Background(), s)
	require.NoError(t, err)

	sales := fx.sales(t)
	require.Len(t, sales, 1)
	assert.Equal(t, models.OperationDelivery, sales[0].OperationType)
	require.NotNil(t, sales[0].Delivery)
	assert.Equal(t, "Av. 9 de Octubre 100", sales[0].Delivery.Address)
	assert.Equal(t, loc, sales[0].Delivery.Location)

	raw, _, err := fx.store.Get(context.Background(), kvstore.KeySales)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"locationText":"Av. 9 de Octubre 100"`)
}

func TestFinalize_StockChangedSinceCartWasBuilt(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory(),
		coffee(1),
		models.Product{ID: "2", Name: "Pan", Price: decimal.NewFromInt(1), AvailableQuantity: 5},
	)
	// cart built against a stale, larger stock
	s := readySession(t, coffee(3), coffee(3), models.Product{ID: "2", Name: "Pan", Price: decimal.NewFromInt(1), AvailableQuantity: 5})

	_, err := fx.finalizer.Finalize(context.Background(), s)

	require.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []apperr.Shortage{{ProductID: "1", ProductName: "Café", Requested: 2, Available: 1}}, appErr.Shortages)

	assert.Empty(t, fx.sales(t), "no partial commit")
	assert.Equal(t, 1, fx.products(t)[0].AvailableQuantity)
	assert.Equal(t, 2, s.Cart.Len())

	list, err := clients.NewDirectory(fx.store, nil).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "client not created on validation failure")
}

func TestFinalize_ProductRemovedFromCatalog(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory())
	s := readySession(t, coffee(2))

	_, err := fx.finalizer.Finalize(context.Background(), s)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindInsufficientStock, appErr.Kind)
	assert.Equal(t, 0, appErr.Shortages[0].Available)
}

func TestFinalize_ReusesClientForSameNationalID(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory(), coffee(10))

	first, err := fx.finalizer.Finalize(context.Background(), readySession(t, coffee(10)))
	require.NoError(t, err)

	other := readySession(t, coffee(10))
	other.Client = ClientForm{NationalID: "777", FirstName: "Luis", LastName: "Paz"}
	second, err := fx.finalizer.Finalize(context.Background(), other)
	require.NoError(t, err)

	again := readySession(t, coffee(10))
	again.Client.FirstName = "Anita"
	third, err := fx.finalizer.Finalize(context.Background(), again)
	require.NoError(t, err)

	assert.NotEqual(t, first.ClientID, second.ClientID)
	assert.Equal(t, first.ClientID, third.ClientID)
	assert.Len(t, fx.sales(t), 3)
	assert.Equal(t, 7, fx.products(t)[0].AvailableQuantity)
}

func TestFinalize_SaleIDsIncreaseWithFrozenClock(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory(), coffee(10))

	a, err := fx.finalizer.Finalize(context.Background(), readySession(t, coffee(10)))
	require.NoError(t, err)
	b, err := fx.finalizer.Finalize(context.Background(), readySession(t, coffee(10)))
	require.NoError(t, err)

	assert.NotEqual(t, a.SaleID, b.SaleID)
	assert.Equal(t, "1715956200001", b.SaleID)
}

func TestFinalize_SequentialPathWithoutBatcher(t *testing.T) {
	store := kvstoretest.NewFaulty(kvstore.NewMemory())
	fx := newFixture(t, store, coffee(2))

	_, err := fx.finalizer.Finalize(context.Background(), readySession(t, coffee(2)))
	require.NoError(t, err)

	assert.Equal(t, 1, store.Puts(kvstore.KeySales))
	assert.Equal(t, 2, store.Puts(kvstore.KeyProducts), "seed write plus the decrement")
	assert.Equal(t, 1, fx.products(t)[0].AvailableQuantity)
	assert.NotEmpty(t, fx.logs.FilterField(zap.String("stage", StagePersistStock)).All())
}

func TestFinalize_StockWriteFailureLeavesRecordedSale(t *testing.T) {
	store := kvstoretest.NewFaulty(kvstore.NewMemory())
	fx := newFixture(t, store, coffee(2))
	store.FailPut(kvstore.KeyProducts)
	s := readySession(t, coffee(2))

	_, err := fx.finalizer.Finalize(context.Background(), s)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindStoreUnavailable, appErr.Kind)
	assert.Equal(t, StagePersistStock, appErr.Stage)
	assert.ErrorIs(t, err, kvstoretest.ErrInjected)

	assert.Len(t, fx.sales(t), 1, "sale was written before the failure")
	assert.Equal(t, 2, fx.products(t)[0].AvailableQuantity, "stock not decremented")
	assert.Equal(t, 1, s.Cart.Len(), "session kept for the operator")

	entries := fx.logs.FilterMessage("finalize stopped after the sale was recorded, stock not decremented").All()
	require.Len(t, entries, 1)
	assert.Equal(t, StagePersistStock, entries[0].ContextMap()["stage"])
}

func TestFinalize_SalesWriteFailure(t *testing.T) {
	store := kvstoretest.NewFaulty(kvstore.NewMemory())
	fx := newFixture(t, store, coffee(2))
	store.FailPut(kvstore.KeySales)

	_, err := fx.finalizer.Finalize(context.Background(), readySession(t, coffee(2)))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, StagePersistSales, appErr.Stage)
	assert.Equal(t, 2, fx.products(t)[0].AvailableQuantity)
}

func TestFinalize_ClientStoreFailure(t *testing.T) {
	store := kvstoretest.NewFaulty(kvstore.NewMemory())
	fx := newFixture(t, store, coffee(2))
	store.FailGet(kvstore.KeyClients)

	_, err := fx.finalizer.Finalize(context.Background(), readySession(t, coffee(2)))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindStoreUnavailable, appErr.Kind)
	assert.Equal(t, StageResolveClient, appErr.Stage)
	assert.Zero(t, store.Puts(kvstore.KeySales))
}

func TestFinalize_RevalidationReadFailure(t *testing.T) {
	store := kvstoretest.NewFaulty(kvstore.NewMemory())
	fx := newFixture(t, store, coffee(2))
	store.FailGet(kvstore.KeyProducts)

	_, err := fx.finalizer.Finalize(context.Background(), readySession(t, coffee(2)))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, StageRevalidateStock, appErr.Stage)
}

func TestFinalize_BatchPathLogsSingleStage(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory(), coffee(2))

	_, err := fx.finalizer.Finalize(context.Background(), readySession(t, coffee(2)))
	require.NoError(t, err)

	assert.NotEmpty(t, fx.logs.FilterField(zap.String("stage", StagePersistBatch)).All())
	assert.Empty(t, fx.logs.FilterField(zap.String("stage", StagePersistSales)).All())
}

func TestFinalize_NotReentrant(t *testing.T) {
	fx := newFixture(t, kvstore.NewMemory(), coffee(2))
	s := readySession(t, coffee(2))
	s.finalizing.Lock()
	defer s.finalizing.Unlock()

	_, err := fx.finalizer.Finalize(context.Background(), s)

	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestFinalize_DecimalTotals(t *testing.T) {
	price := decimal.RequireFromString("0.10")
	p := models.Product{ID: "1", Name: "Chicle", Price: price, AvailableQuantity: 3}
	fx := newFixture(t, kvstore.NewMemory(), p)

	res, err := fx.finalizer.Finalize(context.Background(), readySession(t, p, p, p))
	require.NoError(t, err)

	assert.Equal(t, "0.3", res.Total.String())
}
