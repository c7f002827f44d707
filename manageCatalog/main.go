package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/pkg/api"
	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
	"gitlab.connectwisedev.com/pos-service/pkg/bootstrap"
	"gitlab.connectwisedev.com/pos-service/pkg/catalog"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
)

const (
	resourceProducts   = "products"
	resourceCategories = "categories"
)

var (
	app    *bootstrap.App
	cat    *catalog.Catalog
	logger *zap.Logger
)

var headers = api.Headers(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)

func init() {
	var err error
	app, err = bootstrap.New()
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	setup(app.Store, app.Logger)
}

func setup(store kvstore.Store, l *zap.Logger) {
	logger = l.Named("manageCatalog")
	cat = catalog.New(store, logger)
}

// handler serves /{resource} and /{resource}/{id} for products and categories.
func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resource := request.PathParameters["resource"]
	id := request.PathParameters["id"]
	logger.Debug("catalog request",
		zap.String("method", request.HTTPMethod),
		zap.String("resource", resource),
		zap.String("id", id))

	var (
		status = http.StatusOK
		body   interface{}
		err    error
	)
	switch resource {
	case resourceProducts:
		status, body, err = products(ctx, request.HTTPMethod, id, request.Body)
	case resourceCategories:
		status, body, err = categories(ctx, request.HTTPMethod, id, request.QueryStringParameters["q"], request.Body)
	default:
		err = apperr.Newf(apperr.KindNotFound, "Unknown resource %q", resource)
	}
	if err != nil {
		return api.Error(err, logger, headers), nil
	}
	if status == http.StatusNoContent {
		return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}, nil
	}
	return api.JSON(status, body, headers), nil
}

func products(ctx context.Context, method, id, raw string) (int, interface{}, error) {
	switch {
	case method == http.MethodGet && id == "":
		list, err := cat.Products(ctx)
		return http.StatusOK, list, err
	case method == http.MethodGet:
		p, err := cat.Product(ctx, id)
		return http.StatusOK, p, err
	case method == http.MethodPost && id == "":
		var in catalog.ProductInput
		if err := api.Decode(raw, &in); err != nil {
			return 0, nil, err
		}
		p, err := cat.AddProduct(ctx, in)
		return http.StatusCreated, p, err
	case method == http.MethodPut && id != "":
		var in catalog.ProductInput
		if err := api.Decode(raw, &in); err != nil {
			return 0, nil, err
		}
		p, err := cat.UpdateProduct(ctx, id, in)
		return http.StatusOK, p, err
	case method == http.MethodDelete && id != "":
		return http.StatusNoContent, nil, cat.DeleteProduct(ctx, id)
	}
	return 0, nil, methodNotAllowed(method, id)
}

// categories serves the category screen; q filters the listing by name.
func categories(ctx context.Context, method, id, query, raw string) (int, interface{}, error) {
	switch {
	case method == http.MethodGet && id == "":
		list, err := cat.Categories(ctx)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, catalog.SearchCategories(list, query), nil
	case method == http.MethodPost && id == "":
		var in catalog.CategoryInput
		if err := api.Decode(raw, &in); err != nil {
			return 0, nil, err
		}
		c, err := cat.AddCategory(ctx, in)
		return http.StatusCreated, c, err
	case method == http.MethodPut && id != "":
		var in catalog.CategoryInput
		if err := api.Decode(raw, &in); err != nil {
			return 0, nil, err
		}
		c, err := cat.UpdateCategory(ctx, id, in)
		return http.StatusOK, c, err
	case method == http.MethodDelete && id != "":
		return http.StatusNoContent, nil, cat.DeleteCategory(ctx, id)
	}
	return 0, nil, methodNotAllowed(method, id)
}

func methodNotAllowed(method, id string) error {
	if id == "" {
		return apperr.Newf(apperr.KindInvalidInput, "%s is not supported without an id", method)
	}
	return apperr.Newf(apperr.KindInvalidInput, "%s is not supported with an id", method)
}

func main() {
	defer app.Close()
	lambda.Start(handler)
}
