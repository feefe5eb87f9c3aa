package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/iurnickita/primelabel/internal/model"
)

type memStore struct {
	mu       sync.Mutex
	orders   map[string]model.Order
	defaults map[string]model.ShippingDefaults
}

// NewMemStore returns a Store kept in process memory.
func NewMemStore() Store {
	return &memStore{
		orders:   make(map[string]model.Order),
		defaults: make(map[string]model.ShippingDefaults),
	}
}

func (store *memStore) OrdersUpsertUnlessBought(_ context.Context, orders []model.Order) (UpsertResult, error) {
	// сначала проверка всей пачки, затем запись: все или ничего
	for _, order := range orders {
		if order.ID == "" {
			return UpsertResult{}, ErrEmptyOrderID
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	var result UpsertResult
	for _, order := range orders {
		current, exists := store.orders[order.ID]
		switch {
		case exists && current.Data.Status == model.OrderStatusLabelBought:
			result.Skipped++
			continue
		case exists:
			result.Updated++
		default:
			result.Inserted++
		}

		next := copyOrder(order)
		next.Data.Status = orderStatusOrDefault(order.Data.Status)
		next.Data.TrackingID = current.Data.TrackingID
		next.Data.Label = current.Data.Label
		store.orders[order.ID] = next
	}
	return result, nil
}

func (store *memStore) OrderGet(_ context.Context, orderID string) (model.Order, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	order, ok := store.orders[orderID]
	if !ok {
		return model.Order{}, ErrNoRows
	}
	return copyOrder(order), nil
}

func (store *memStore) OrderList(_ context.Context) ([]model.Order, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	orders := make([]model.Order, 0, len(store.orders))
	for _, order := range store.orders {
		orders = append(orders, copyOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].Data.PurchaseDate.Equal(orders[j].Data.PurchaseDate) {
			return orders[i].Data.PurchaseDate.After(orders[j].Data.PurchaseDate)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders, nil
}

func (store *memStore) OrderSetLabelBought(_ context.Context, orderID string, trackingID string, label string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	order, ok := store.orders[orderID]
	if !ok {
		return ErrNoRows
	}
	if order.Data.Status == model.OrderStatusLabelBought {
		return ErrAlreadyFinalized
	}
	order.Data.Status = model.OrderStatusLabelBought
	order.Data.TrackingID = trackingID
	order.Data.Label = label
	store.orders[orderID] = order
	return nil
}

func (store *memStore) ShippingDefaultsGet(_ context.Context, sku string) (model.ShippingDefaults, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	defaults, ok := store.defaults[sku]
	if !ok {
		return model.ShippingDefaults{}, ErrNoRows
	}
	return defaults, nil
}

func (store *memStore) ShippingDefaultsPut(_ context.Context, defaults model.ShippingDefaults) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.defaults[defaults.SKU] = defaults
	return nil
}

func (store *memStore) Close() error {
	return nil
}

func copyOrder(order model.Order) model.Order {
	order.Data.Items = slices.Clone(order.Data.Items)
	return order
}
