package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/api"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/sales"
)

func seed(t *testing.T) *kvstore.Memory {
	t.Helper()
	store := kvstore.NewMemory()
	require.NoError(t, kvstore.SaveCollection(context.Background(), store, kvstore.KeyProducts, []models.Product{
		{ID: "1", Name: "Café", CategoryID: "1", Price: decimal.RequireFromString("2.5"), AvailableQuantity: 5},
		{ID: "2", Name: "Pan", CategoryID: "2", Price: decimal.RequireFromString("0.25"), AvailableQuantity: 0},
	}))
	setup(store, zap.NewNop())
	return store
}

func post(t *testing.T, body string) events.APIGatewayProxyResponse {
	t.Helper()
	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: body})
	require.NoError(t, err)
	return resp
}

func errorBody(t *testing.T, resp events.APIGatewayProxyResponse) api.ErrorBody {
	t.Helper()
	var body api.ErrorBody
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body
}

func TestHandler_Pickup(t *testing.T) {
	store := seed(t)

	resp := post(t, `{
		"client": {"cedula": "0912345678", "nombre": "Ana", "apellido": "Gomez"},
		"items": [{"idProducto": "1", "cantidad": 2}]
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)

	var res sales.Result
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &res))
	assert.Equal(t, "1", res.ClientID)
	assert.True(t, res.Total.Equal(decimal.NewFromInt(5)))

	ctx := context.Background()
	saved, err := kvstore.LoadCollection[models.Sale](ctx, store, kvstore.KeySales)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, models.OperationPickup, saved[0].OperationType)
	assert.Equal(t, res.SaleID, saved[0].ID)

	products, err := kvstore.LoadCollection[models.Product](ctx, store, kvstore.KeyProducts)
	require.NoError(t, err)
	assert.Equal(t, 3, products[0].AvailableQuantity)
}

func TestHandler_Delivery(t *testing.T) {
	store := seed(t)

	resp := post(t, `{
		"client": {"cedula": "0912345678", "nombre": "Ana", "apellido": "Gomez"},
		"tipoOperacion": "delivery",
		"delivery": {"locationText": "Av. Principal 123", "location": {"latitude": -2.19, "longitude": -79.88}},
		"items": [{"idProducto": "1", "cantidad": 1}]
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)

	saved, err := kvstore.LoadCollection[models.Sale](context.Background(), store, kvstore.KeySales)
	require.NoError(t, err)
	require.NotNil(t, saved[0].Delivery)
	assert.Equal(t, "Av. Principal 123", saved[0].Delivery.Address)
}

func TestHandler_DeliveryWithoutAddress(t *testing.T) {
	seed(t)

	resp := post(t, `{
		"client": {"cedula": "1", "nombre": "A", "apellido": "B"},
		"tipoOperacion": "delivery",
		"items": [{"idProducto": "1", "cantidad": 1}]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INCOMPLETE_DELIVERY_DATA", errorBody(t, resp).Code)
}

func TestHandler_IncompleteClient(t *testing.T) {
	seed(t)

	resp := post(t, `{"client": {"cedula": "1", "nombre": "A"}, "items": [{"idProducto": "1", "cantidad": 1}]}`)
	assert.Equal(t, "INCOMPLETE_CLIENT_DATA", errorBody(t, resp).Code)

	resp = post(t, `{"client": {"cedula": "1", "nombre": "A", "apellido": "B"}, "items": []}`)
	assert.Equal(t, "INCOMPLETE_CLIENT_DATA", errorBody(t, resp).Code)
}

func TestHandler_StockRules(t *testing.T) {
	seed(t)
	client := `"client": {"cedula": "1", "nombre": "A", "apellido": "B"}`

	resp := post(t, `{`+client+`, "items": [{"idProducto": "2", "cantidad": 1}]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "OUT_OF_STOCK", errorBody(t, resp).Code)

	resp = post(t, `{`+client+`, "items": [{"idProducto": "1", "cantidad": 6}]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := errorBody(t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	require.Len(t, body.Shortages, 1)
	assert.Equal(t, 5, body.Shortages[0].Available)
}

func TestHandler_BadItems(t *testing.T) {
	seed(t)
	client := `"client": {"cedula": "1", "nombre": "A", "apellido": "B"}`

	assert.Equal(t, http.StatusNotFound, post(t, `{`+client+`, "items": [{"idProducto": "9", "cantidad": 1}]}`).StatusCode)
	resp := post(t, `{`+client+`, "items": [{"idProducto": "1", "cantidad": 1}, {"idProducto": "1", "cantidad": -2}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Body, "items[1].cantidad: must_be_positive")
	assert.Equal(t, http.StatusBadRequest, post(t, `{`+client+`, "items": [{"idProducto": "1", "cantidad": 0}]}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, `{`+client+`, "tipoOperacion": "drone", "items": [{"idProducto": "1", "cantidad": 1}]}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, `not json`).StatusCode)
}
