package defaults

import (
	"context"
	"errors"
	"time"

	"github.com/iurnickita/primelabel/internal/model"
	"github.com/iurnickita/primelabel/internal/store"
)

// Умолчания веса и габаритов по SKU

type Defaults interface {
	Get(ctx context.Context, sku string) (model.ShippingDefaults, error)
	// Remember сохраняет вес и габариты, если в заказе ровно один SKU.
	// Возвращает true, если запись обновлена.
	Remember(ctx context.Context, items []model.LineItem, weight model.Weight, dims model.Dimensions) (bool, error)
}

var ErrUnknownSKU = errors.New("no shipping defaults for sku")

type defaults struct {
	store store.Store
	now   func() time.Time
}

func NewDefaults(store store.Store) Defaults {
	defaults := defaults{store: store, now: time.Now}
	return &defaults
}

func (defaults *defaults) Get(ctx context.Context, sku string) (model.ShippingDefaults, error) {
	found, err := defaults.store.ShippingDefaultsGet(ctx, sku)
	if errors.Is(err, store.ErrNoRows) {
		return model.ShippingDefaults{}, ErrUnknownSKU
	}
	return found, err
}

func (defaults *defaults) Remember(ctx context.Context, items []model.LineItem, weight model.Weight, dims model.Dimensions) (bool, error) {
	skus := model.DistinctSKUs(items)
	if len(skus) != 1 || skus[0] == "" {
		return false, nil
	}

	var record model.ShippingDefaults
	record.SKU = skus[0]
	record.Data.Weight = weight
	record.Data.Dimensions = dims
	record.Data.UpdatedAt = defaults.now().UTC()

	if err := defaults.store.ShippingDefaultsPut(ctx, record); err != nil {
		return false, err
	}
	return true, nil
}
