package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/primelabel/internal/model"
	"github.com/iurnickita/primelabel/internal/service/remotecall"
)

// SyncOrders fetches unshipped Prime orders with their items and stores them
// in one transaction. Orders with a bought label are not touched.
func (service *service) SyncOrders(ctx context.Context) (SyncReport, error) {
	orders, err := remotecall.Call(ctx, service.executor, "fetch unshipped prime orders",
		service.market.FetchUnshippedPrimeOrders)
	if err != nil {
		return SyncReport{}, fmt.Errorf("fetch orders: %w", err)
	}

	for i := range orders {
		orderID := orders[i].ID
		items, err := remotecall.Call(ctx, service.executor, "fetch order items "+orderID,
			func(ctx context.Context) ([]model.LineItem, error) {
				return service.market.FetchOrderItems(ctx, orderID)
			})
		if err != nil {
			return SyncReport{}, fmt.Errorf("fetch items of order %s: %w", orderID, err)
		}
		orders[i].Data.Items = items
		orders[i].Data.Status = model.OrderStatusUnshipped
	}

	result, err := service.store.OrdersUpsertUnlessBought(ctx, orders)
	if err != nil {
		return SyncReport{}, fmt.Errorf("store orders: %w", err)
	}

	report := SyncReport{
		Fetched:  len(orders),
		Inserted: result.Inserted,
		Updated:  result.Updated,
		Skipped:  result.Skipped,
	}
	service.zaplog.Info("orders synchronized",
		zap.Int("fetched", report.Fetched),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func (service *service) RunSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := service.SyncOrders(ctx); err != nil {
				service.zaplog.Error("background sync failed", zap.Error(err))
			}
		}
	}
}
