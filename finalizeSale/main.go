package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/api"
	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
	"gitlab.connectwisedev.com/pos-service/pkg/bootstrap"
	"gitlab.connectwisedev.com/pos-service/pkg/catalog"
	"gitlab.connectwisedev.com/pos-service/pkg/clients"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/sales"
	"gitlab.connectwisedev.com/pos-service/pkg/validation"
)

var (
	app       *bootstrap.App
	cat       *catalog.Catalog
	finalizer *sales.Finalizer
	logger    *zap.Logger
)

var headers = api.Headers(http.MethodPost)

func init() {
	var err error
	app, err = bootstrap.New()
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	setup(app.Store, app.Logger)
}

func setup(store kvstore.Store, l *zap.Logger) {
	logger = l.Named("finalizeSale")
	cat = catalog.New(store, logger)
	finalizer = sales.NewFinalizer(store, clients.NewDirectory(store, logger), logger)
}

type item struct {
	ProductID string `json:"idProducto"`
	Quantity  int    `json:"cantidad"`
}

type deliveryRequest struct {
	Address  string           `json:"locationText"`
	Location *models.Location `json:"location,omitempty"`
}

type saleRequest struct {
	Client        sales.ClientForm     `json:"client"`
	OperationType models.OperationType `json:"tipoOperacion"`
	Delivery      *deliveryRequest     `json:"delivery,omitempty"`
	Items         []item               `json:"items"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req saleRequest
	if err := api.Decode(request.Body, &req); err != nil {
		return api.Error(err, logger, headers), nil
	}

	session, err := buildSession(ctx, req)
	if err != nil {
		return api.Error(err, logger, headers), nil
	}

	res, err := finalizer.Finalize(ctx, session)
	if err != nil {
		return api.Error(err, logger, headers), nil
	}
	return api.JSON(http.StatusCreated, res, headers), nil
}

// buildSession replays the requested items through the cart so the same
// stock rules apply as at the counter.
func buildSession(ctx context.Context, req saleRequest) (*sales.Session, error) {
	products, err := cat.Products(ctx)
	if err != nil {
		return nil, err
	}

	v := validation.Violations{}
	for i, it := range req.Items {
		validation.PositiveInt(fmt.Sprintf("items[%d].cantidad", i), it.Quantity, v)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	s := sales.NewSession()
	s.Client = req.Client
	for _, it := range req.Items {
		p, ok := catalog.FindProduct(products, it.ProductID)
		if !ok {
			return nil, apperr.Newf(apperr.KindNotFound, "Product %s not found", it.ProductID)
		}
		for n := 0; n < it.Quantity; n++ {
			if err := s.Cart.Add(p); err != nil {
				return nil, err
			}
		}
	}

	switch req.OperationType {
	case "", models.OperationPickup:
		s.SetPickup()
	case models.OperationDelivery:
		var d deliveryRequest
		if req.Delivery != nil {
			d = *req.Delivery
		}
		s.SetDelivery(d.Address, d.Location)
	default:
		return nil, apperr.Newf(apperr.KindInvalidInput, "Unknown operation type %q", req.OperationType)
	}
	return s, nil
}

func main() {
	defer app.Close()
	lambda.Start(handler)
}
