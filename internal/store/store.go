package store

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/primelabel/internal/model"
	"github.com/iurnickita/primelabel/internal/store/config"
)

type Store interface {
	// OrdersUpsertUnlessBought inserts or overwrites orders in one transaction.
	// Rows already in status LabelBought are left untouched and counted as skipped.
	OrdersUpsertUnlessBought(ctx context.Context, orders []model.Order) (UpsertResult, error)
	OrderGet(ctx context.Context, orderID string) (model.Order, error)
	OrderList(ctx context.Context) ([]model.Order, error)
	// OrderSetLabelBought stores status, tracking id and label together,
	// only if the order is not LabelBought yet.
	OrderSetLabelBought(ctx context.Context, orderID string, trackingID string, label string) error
	ShippingDefaultsGet(ctx context.Context, sku string) (model.ShippingDefaults, error)
	ShippingDefaultsPut(ctx context.Context, defaults model.ShippingDefaults) error
	Close() error
}

type UpsertResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

var (
	ErrNoRows            = errors.New("no rows")
	ErrAlreadyFinalized  = errors.New("order label already bought")
	ErrEmptyOrderID      = errors.New("order id is empty")
	ErrSerializationFail = errors.New("concurrent update, transaction rolled back")
)

func NewStore(cfg config.Config) (Store, error) {
	if cfg.DBDsn == "" {
		return NewMemStore(), nil
	}

	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}
	store, err := newPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func orderStatusOrDefault(status model.OrderStatus) model.OrderStatus {
	if status == "" {
		return model.OrderStatusUnshipped
	}
	return status
}
