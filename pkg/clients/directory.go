// Package clients finds or creates clients by national id in the "clients"
// collection.
package clients

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/logging"
)

// UnknownClient is shown for sales whose client cannot be resolved.
const UnknownClient = "Unknown client"

// Directory resolves and registers clients in the clients collection.
type Directory struct {
	store  kvstore.Store
	logger *zap.Logger
}

// NewDirectory returns a Directory over store. A nil logger discards output.
func NewDirectory(store kvstore.Store, logger *zap.Logger) *Directory {
	return &Directory{store: store, logger: logging.OrNop(logger)}
}

// List loads every client.
func (d *Directory) List(ctx context.Context) ([]models.Client, error) {
	list, err := kvstore.LoadCollection[models.Client](ctx, d.store, kvstore.KeyClients)
	if err != nil {
		return nil, apperr.StoreUnavailable("", err)
	}
	return list, nil
}

// Get returns the client with the given id.
func (d *Directory) Get(ctx context.Context, id string) (models.Client, error) {
	list, err := d.List(ctx)
	if err != nil {
		return models.Client{}, err
	}
	if c, ok := FindByID(list, id); ok {
		return c, nil
	}
	return models.Client{}, apperr.Newf(apperr.KindNotFound, "Client %s not found", id)
}

// FindOrCreate returns the id of the client with nationalID, creating it when
// missing. An existing client keeps the names it was first stored with.
//
// New ids are len(collection)+1, bumped until unused.
func (d *Directory) FindOrCreate(ctx context.Context, nationalID, firstName, lastName string) (string, bool, error) {
	list, err := d.List(ctx)
	if err != nil {
		return "", false, err
	}

	for _, c := range list {
		if c.NationalID == nationalID {
			return c.ID, false, nil
		}
	}

	id := nextID(list)
	list = append(list, models.Client{
		ID:         id,
		NationalID: nationalID,
		FirstName:  firstName,
		LastName:   lastName,
	})
	if err := kvstore.SaveCollection(ctx, d.store, kvstore.KeyClients, list); err != nil {
		return "", false, apperr.StoreUnavailable("", err)
	}

	d.logger.Info("client created", zap.String("client_id", id), zap.String("cedula", nationalID))
	return id, true, nil
}

func nextID(list []models.Client) string {
	taken := make(map[string]bool, len(list))
	for _, c := range list {
		taken[c.ID] = true
	}
	for i := len(list) + 1; ; i++ {
		id := strconv.Itoa(i)
		if !taken[id] {
			return id
		}
	}
}

// FindByID looks a client up in an already loaded collection.
func FindByID(list []models.Client, id string) (models.Client, bool) {
	for _, c := range list {
		if c.ID == id {
			return c, true
		}
	}
	return models.Client{}, false
}

// DisplayName returns "first last" or UnknownClient.
func DisplayName(list []models.Client, id string) string {
	if c, ok := FindByID(list, id); ok {
		return c.FullName()
	}
	return UnknownClient
}

// Search keeps clients whose national id contains text, or whose first or
// last name contains it ignoring case.
func Search(list []models.Client, text string) []models.Client {
	lower := strings.ToLower(text)
	out := make([]models.Client, 0, len(list))
	for _, c := range list {
		if strings.Contains(c.NationalID, text) ||
			strings.Contains(strings.ToLower(c.FirstName), lower) ||
			strings.Contains(strings.ToLower(c.LastName), lower) {
			out = append(out, c)
		}
	}
	return out
}
