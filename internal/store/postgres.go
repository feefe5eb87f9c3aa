package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iurnickita/primelabel/internal/model"
)

type pgStore struct {
	database *sql.DB
}

func newPostgresStore(db *sql.DB) (*pgStore, error) {
	// Таблица заказов.
	// Строка на заказ; статус LabelBought окончательный
	_, err := db.Exec(
		"CREATE TABLE IF NOT EXISTS orders (" +
			" order_id VARCHAR (32) PRIMARY KEY," +
			" purchase_date TIMESTAMPTZ NOT NULL," +
			" customer_name TEXT NOT NULL," +
			" ship_to JSONB NOT NULL," +
			" items JSONB NOT NULL," +
			" is_prime BOOLEAN NOT NULL," +
			" status VARCHAR (16) NOT NULL," +
			" tracking_id TEXT NOT NULL DEFAULT ''," +
			" label TEXT NOT NULL DEFAULT ''," +
			" updated_at TIMESTAMPTZ NOT NULL DEFAULT now()" +
			" );")
	if err != nil {
		return nil, err
	}

	// Таблица умолчаний доставки по SKU (последняя запись побеждает)
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS shipping_defaults (" +
			" sku VARCHAR (64) PRIMARY KEY," +
			" weight_value DOUBLE PRECISION NOT NULL," +
			" weight_unit VARCHAR (4) NOT NULL," +
			" length DOUBLE PRECISION NOT NULL," +
			" width DOUBLE PRECISION NOT NULL," +
			" height DOUBLE PRECISION NOT NULL," +
			" dimension_unit VARCHAR (4) NOT NULL," +
			" updated_at TIMESTAMPTZ NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	return &pgStore{database: db}, nil
}

const upsertOrderQuery = "INSERT INTO orders (order_id, purchase_date, customer_name, ship_to, items, is_prime, status, updated_at)" +
	" VALUES ($1, $2, $3, $4, $5, $6, $7, now())" +
	" ON CONFLICT (order_id) DO UPDATE SET" +
	"   purchase_date = EXCLUDED.purchase_date," +
	"   customer_name = EXCLUDED.customer_name," +
	"   ship_to = EXCLUDED.ship_to," +
	"   items = EXCLUDED.items," +
	"   is_prime = EXCLUDED.is_prime," +
	"   status = EXCLUDED.status," +
	"   updated_at = now()" +
	" WHERE orders.status <> 'LabelBought'" +
	" RETURNING (xmax = 0) AS inserted"

func (store *pgStore) OrdersUpsertUnlessBought(ctx context.Context, orders []model.Order) (result UpsertResult, err error) {
	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			result = UpsertResult{}
		}
	}()

	for _, order := range orders {
		if order.ID == "" {
			return UpsertResult{}, ErrEmptyOrderID
		}
		shipTo, err := json.Marshal(order.Data.ShipTo)
		if err != nil {
			return UpsertResult{}, err
		}
		items, err := json.Marshal(order.Data.Items)
		if err != nil {
			return UpsertResult{}, err
		}

		var inserted bool
		err = tx.QueryRowContext(ctx, upsertOrderQuery,
			order.ID,
			order.Data.PurchaseDate,
			order.Data.CustomerName,
			shipTo,
			items,
			order.Data.IsPrime,
			orderStatusOrDefault(order.Data.Status),
		).Scan(&inserted)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// WHERE конфликта не прошел: заказ уже LabelBought
			result.Skipped++
		case err != nil:
			return UpsertResult{}, mapPgError(err)
		case inserted:
			result.Inserted++
		default:
			result.Updated++
		}
	}

	if err = tx.Commit(); err != nil {
		return UpsertResult{}, mapPgError(err)
	}
	return result, nil
}

const selectOrderColumns = "SELECT order_id, purchase_date, customer_name, ship_to, items, is_prime, status, tracking_id, label FROM orders"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (model.Order, error) {
	var order model.Order
	var shipTo, items []byte
	err := row.Scan(&order.ID,
		&order.Data.PurchaseDate,
		&order.Data.CustomerName,
		&shipTo,
		&items,
		&order.Data.IsPrime,
		&order.Data.Status,
		&order.Data.TrackingID,
		&order.Data.Label)
	if err != nil {
		return model.Order{}, err
	}
	if err = json.Unmarshal(shipTo, &order.Data.ShipTo); err != nil {
		return model.Order{}, err
	}
	if err = json.Unmarshal(items, &order.Data.Items); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (store *pgStore) OrderGet(ctx context.Context, orderID string) (model.Order, error) {
	row := store.database.QueryRowContext(ctx, selectOrderColumns+" WHERE order_id = $1", orderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, ErrNoRows
		}
		return model.Order{}, err
	}
	return order, nil
}

func (store *pgStore) OrderList(ctx context.Context) ([]model.Order, error) {
	rows, err := store.database.QueryContext(ctx, selectOrderColumns+" ORDER BY purchase_date DESC, order_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (store *pgStore) OrderSetLabelBought(ctx context.Context, orderID string, trackingID string, label string) error {
	// Одна команда: статус, трек-номер и этикетка меняются вместе или никак
	res, err := store.database.ExecContext(ctx,
		"UPDATE orders"+
			" SET status = 'LabelBought', tracking_id = $2, label = $3, updated_at = now()"+
			" WHERE order_id = $1"+
			"   AND status <> 'LabelBought'",
		orderID,
		trackingID,
		label)
	if err != nil {
		return mapPgError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var status string
	err = store.database.QueryRowContext(ctx,
		"SELECT status FROM orders WHERE order_id = $1", orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoRows
		}
		return err
	}
	return ErrAlreadyFinalized
}

func (store *pgStore) ShippingDefaultsGet(ctx context.Context, sku string) (model.ShippingDefaults, error) {
	var defaults model.ShippingDefaults
	row := store.database.QueryRowContext(ctx,
		"SELECT sku, weight_value, weight_unit, length, width, height, dimension_unit, updated_at"+
			" FROM shipping_defaults"+
			" WHERE sku = $1",
		sku)
	err := row.Scan(&defaults.SKU,
		&defaults.Data.Weight.Value,
		&defaults.Data.Weight.Unit,
		&defaults.Data.Dimensions.Length,
		&defaults.Data.Dimensions.Width,
		&defaults.Data.Dimensions.Height,
		&defaults.Data.Dimensions.Unit,
		&defaults.Data.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ShippingDefaults{}, ErrNoRows
		}
		return model.ShippingDefaults{}, err
	}
	return defaults, nil
}

func (store *pgStore) ShippingDefaultsPut(ctx context.Context, defaults model.ShippingDefaults) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO shipping_defaults (sku, weight_value, weight_unit, length, width, height, dimension_unit, updated_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"+
			" ON CONFLICT (sku) DO UPDATE SET"+
			"   weight_value = EXCLUDED.weight_value,"+
			"   weight_unit = EXCLUDED.weight_unit,"+
			"   length = EXCLUDED.length,"+
			"   width = EXCLUDED.width,"+
			"   height = EXCLUDED.height,"+
			"   dimension_unit = EXCLUDED.dimension_unit,"+
			"   updated_at = EXCLUDED.updated_at",
		defaults.SKU,
		defaults.Data.Weight.Value,
		string(defaults.Data.Weight.Unit),
		defaults.Data.Dimensions.Length,
		defaults.Data.Dimensions.Width,
		defaults.Data.Dimensions.Height,
		string(defaults.Data.Dimensions.Unit),
		defaults.Data.UpdatedAt)
	return mapPgError(err)
}

func (store *pgStore) Close() error {
	return store.database.Close()
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return ErrSerializationFail
		}
	}
	return err
}
