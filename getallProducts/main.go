package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/api"
	"gitlab.connectwisedev.com/pos-service/pkg/bootstrap"
	"gitlab.connectwisedev.com/pos-service/pkg/catalog"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
)

var (
	app      *bootstrap.App
	products *catalog.Catalog
	logger   *zap.Logger
)

var headers = api.Headers(http.MethodGet)

func init() {
	var err error
	app, err = bootstrap.New()
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	setup(app.Store, app.Logger)
}

func setup(store kvstore.Store, l *zap.Logger) {
	logger = l.Named("getallProducts")
	products = catalog.New(store, logger)
}

// productView is a catalog entry with its category name resolved.
type productView struct {
	models.Product
	CategoryName string `json:"categoria"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	query := request.QueryStringParameters["q"]
	category := request.QueryStringParameters["category"]
	logger.Debug("listing products", zap.String("q", query), zap.String("category", category))

	all, err := products.Products(ctx)
	if err != nil {
		return api.Error(err, logger, headers), nil
	}
	categories, err := products.Categories(ctx)
	if err != nil {
		return api.Error(err, logger, headers), nil
	}

	matched := catalog.SearchProducts(all, query, category)
	views := make([]productView, len(matched))
	for i, p := range matched {
		views[i] = productView{Product: p, CategoryName: catalog.CategoryName(categories, p.CategoryID)}
	}

	resp := api.JSON(http.StatusOK, views, headers)
	// Stock changes with every sale, so clients must revalidate quickly.
	resp.Headers["Cache-Control"] = "public, max-age=30, must-revalidate"

	logger.Info("products listed", zap.Int("count", len(views)))
	return resp, nil
}

func main() {
	defer app.Close()
	lambda.Start(handler)
}
