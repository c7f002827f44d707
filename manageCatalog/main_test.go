package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
)

func call(t *testing.T, method, resource, id, body string) events.APIGatewayProxyResponse {
	t.Helper()
	params := map[string]string{"resource": resource}
	if id != "" {
		params["id"] = id
	}
	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     method,
		PathParameters: params,
		Body:           body,
	})
	require.NoError(t, err)
	return resp
}

func TestCategories_Lifecycle(t *testing.T) {
	setup(kvstore.NewMemory(), zap.NewNop())

	resp := call(t, http.MethodPost, "categories", "", `{"nombre":"Bebidas","imagen":"https://img/b.png"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)
	var created models.Category
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &created))
	assert.Equal(t, "1", created.ID)

	resp = call(t, http.MethodPut, "categories", "1", `{"nombre":"Jugos","imagen":"https://img/j.png"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, "Jugos")

	resp = call(t, http.MethodGet, "categories", "", "")
	assert.JSONEq(t, `[{"idCategoria":"1","nombre":"Jugos","imagen":"https://img/j.png"}]`, resp.Body)

	resp = call(t, http.MethodDelete, "categories", "1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Body)

	resp = call(t, http.MethodDelete, "categories", "1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategories_FilterByName(t *testing.T) {
	setup(kvstore.NewMemory(), zap.NewNop())
	for _, name := range []string{"Bebidas calientes", "Panadería", "Bebidas frías"} {
		resp := call(t, http.MethodPost, "categories", "", `{"nombre":"`+name+`","imagen":"https://img/x.png"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)
	}

	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		PathParameters:        map[string]string{"resource": "categories"},
		QueryStringParameters: map[string]string{"q": "bebidas"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []models.Category
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestProducts_Lifecycle(t *testing.T) {
	setup(kvstore.NewMemory(), zap.NewNop())

	resp := call(t, http.MethodPost, "products", "", `{"nombre":"Café","idCategoria":"1","precioVenta":2.5,"cantidadDisponible":10}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)

	resp = call(t, http.MethodGet, "products", "1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"idProducto":"1","nombre":"Café","idCategoria":"1","precioVenta":2.5,"cantidadDisponible":10}`, resp.Body)

	resp = call(t, http.MethodPut, "products", "1", `{"nombre":"Café","idCategoria":"1","precioVenta":3,"cantidadDisponible":0}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, `"precioVenta":3`)

	resp = call(t, http.MethodDelete, "products", "1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = call(t, http.MethodGet, "products", "1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProducts_Validation(t *testing.T) {
	setup(kvstore.NewMemory(), zap.NewNop())

	resp := call(t, http.MethodPost, "products", "", `{"nombre":"","idCategoria":"1","precioVenta":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Body, "nombre: required")
	assert.Contains(t, resp.Body, "precioVenta: must_not_be_negative")

	resp = call(t, http.MethodPost, "products", "", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouting(t *testing.T) {
	setup(kvstore.NewMemory(), zap.NewNop())

	assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, "clients", "", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, call(t, http.MethodDelete, "products", "", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, call(t, http.MethodPost, "categories", "3", "{}").StatusCode)
}
