package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iurnickita/primelabel/internal/model"
	"github.com/iurnickita/primelabel/internal/service/marketplace"
	"github.com/iurnickita/primelabel/internal/service/remotecall"
	"github.com/iurnickita/primelabel/internal/store"
	"github.com/iurnickita/primelabel/internal/zpl"
)

func (service *service) PurchaseLabel(ctx context.Context, req PurchaseRequest) (LabelResult, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	warnings, err := validatePurchase(req, req.Weight, req.Dimensions)
	if err != nil {
		return LabelResult{}, err
	}

	res, err := service.purchaseOne(ctx, req.OrderID, req.Weight, req.Dimensions, zpl.Options{X: req.X, Y: req.Y})
	if err != nil {
		return LabelResult{}, err
	}
	res.Warnings = append(warnings, res.Warnings...)
	return res, nil
}

// purchaseOne buys a label for one order: cheapest eligible service,
// shipment, decode, SKU injection, then status, tracking id and label are
// stored together.
func (service *service) purchaseOne(ctx context.Context, orderID string, weight model.Weight, dims model.Dimensions, opts zpl.Options) (LabelResult, error) {
	unlock := service.locks.Lock(orderID)
	defer unlock()

	order, err := service.store.OrderGet(ctx, orderID)
	if errors.Is(err, store.ErrNoRows) {
		return LabelResult{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return LabelResult{}, err
	}
	if order.Data.Status == model.OrderStatusLabelBought {
		return LabelResult{}, fmt.Errorf("%w: %s", ErrAlreadyPurchased, orderID)
	}

	sku, quantity := "", 1.0
	if len(order.Data.Items) > 0 {
		sku = order.Data.Items[0].SKU
		quantity = float64(order.Data.Items[0].Quantity)
	}

	shipReq := model.ShipmentRequest{
		OrderID:    orderID,
		ShipFrom:   service.cfg.ShipFrom,
		ShipTo:     order.Data.ShipTo,
		Items:      order.Data.Items,
		Weight:     weight,
		Dimensions: dims,
	}

	services, err := remotecall.Call(ctx, service.executor, "eligible shipping services "+orderID,
		func(ctx context.Context) ([]model.ShippingService, error) {
			return service.market.GetEligibleServices(ctx, shipReq)
		})
	if err != nil {
		return LabelResult{}, err
	}
	chosen, ok := cheapestService(services)
	if !ok {
		return LabelResult{}, fmt.Errorf("%w: %s", ErrNoEligibleServices, orderID)
	}

	shipment, err := remotecall.Call(ctx, service.executor, "create shipment "+orderID,
		func(ctx context.Context) (model.Shipment, error) {
			return service.market.CreateShipment(ctx, shipReq, chosen)
		})
	if err != nil {
		return LabelResult{}, err
	}

	// С этого момента этикетка оплачена: любые ошибки логируем с трек-номером
	purchased := service.zaplog.With(
		zap.String("order", orderID),
		zap.String("tracking", shipment.TrackingID),
		zap.String("shipping_service", chosen.ID),
	)
	if shipment.TrackingID == "" || shipment.LabelData == "" {
		purchased.Error("shipment without label data")
		return LabelResult{}, fmt.Errorf("%w: %s", ErrLabelDataMissing, orderID)
	}
	raw, err := marketplace.DecodeLabel(shipment.LabelData)
	if err != nil {
		purchased.Error("label payload not decoded", zap.Error(err))
		return LabelResult{}, fmt.Errorf("%w: %s: %v", ErrLabelDataMissing, orderID, err)
	}

	injected, err := service.injector.Inject(raw, sku, quantity, opts)
	if err != nil {
		purchased.Error("purchased label rejected by injector", zap.Error(err))
		return LabelResult{}, fmt.Errorf("%w: %s: %w", ErrInjectionRejected, orderID, err)
	}

	err = service.store.OrderSetLabelBought(ctx, orderID, shipment.TrackingID, injected.Label)
	switch {
	case errors.Is(err, store.ErrAlreadyFinalized):
		purchased.Error("order finalized concurrently, label not saved")
		return LabelResult{}, fmt.Errorf("%w: %s: %w", ErrAlreadyPurchased, orderID, err)
	case errors.Is(err, store.ErrNoRows):
		purchased.Error("order disappeared, label not saved")
		return LabelResult{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	case err != nil:
		purchased.Error("label not saved", zap.Error(err))
		return LabelResult{}, err
	}
	purchased.Info("label purchased", zap.String("cost", chosen.Cost.String()))

	if _, err := service.defaults.Remember(ctx, order.Data.Items, weight, dims); err != nil {
		purchased.Warn("shipping defaults not saved", zap.Error(err))
	}
	if service.archive != nil {
		if err := service.archive.Put(ctx, orderID, shipment.TrackingID, injected.Label); err != nil {
			purchased.Warn("label not archived", zap.Error(err))
		}
	}

	return LabelResult{
		OrderID:    orderID,
		TrackingID: shipment.TrackingID,
		Service:    &chosen,
		Label:      injected.Label,
		Warnings:   injected.Warnings,
	}, nil
}

func (service *service) ReprintLabel(ctx context.Context, orderID string) (LabelResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return LabelResult{}, &ValidationError{Problems: []string{"orderId is required"}}
	}

	order, err := service.store.OrderGet(ctx, orderID)
	if errors.Is(err, store.ErrNoRows) {
		return LabelResult{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return LabelResult{}, err
	}
	if order.Data.Label == "" {
		return LabelResult{}, fmt.Errorf("%w: %s", ErrLabelNotSaved, orderID)
	}
	return LabelResult{OrderID: orderID, TrackingID: order.Data.TrackingID, Label: order.Data.Label}, nil
}

func (service *service) PreviewInjection(req PreviewRequest) (PreviewResult, error) {
	res := PreviewResult{Validation: zpl.Validate(req.Label)}

	injected, err := service.injector.Inject(req.Label, req.SKU, req.Quantity,
		zpl.Options{X: req.X, Y: req.Y, DryRun: req.DryRun})
	res.Injection = injected
	if err != nil {
		res.Error = err.Error()
		return res, fmt.Errorf("%w: %w", ErrInjectionRejected, err)
	}
	return res, nil
}

// cheapestService picks the lowest cost; on a tie the first listed wins.
func cheapestService(services []model.ShippingService) (model.ShippingService, bool) {
	if len(services) == 0 {
		return model.ShippingService{}, false
	}
	best := services[0]
	for _, s := range services[1:] {
		if s.Cost.LessThan(best.Cost) {
			best = s
		}
	}
	return best, true
}
