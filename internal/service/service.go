package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/primelabel/internal/archive"
	"github.com/iurnickita/primelabel/internal/artifact"
	"github.com/iurnickita/primelabel/internal/defaults"
	"github.com/iurnickita/primelabel/internal/model"
	"github.com/iurnickita/primelabel/internal/service/config"
	"github.com/iurnickita/primelabel/internal/service/marketplace"
	"github.com/iurnickita/primelabel/internal/service/remotecall"
	"github.com/iurnickita/primelabel/internal/store"
	"github.com/iurnickita/primelabel/internal/zpl"
)

type Service interface {
	SyncOrders(ctx context.Context) (SyncReport, error)
	// RunSync синхронизирует заказы каждые interval, пока ctx не отменен
	RunSync(ctx context.Context, interval time.Duration)
	ListOrders(ctx context.Context) ([]model.Order, error)

	PurchaseLabel(ctx context.Context, req PurchaseRequest) (LabelResult, error)
	PurchaseLabels(ctx context.Context, req BulkPurchaseRequest) (BatchReport, error)
	ReprintLabel(ctx context.Context, orderID string) (LabelResult, error)
	ReprintLabels(ctx context.Context, orderIDs []string) (BatchReport, error)
	PreviewInjection(req PreviewRequest) (PreviewResult, error)

	ShippingDefaults(ctx context.Context, sku string) (model.ShippingDefaults, error)
	Artifact(ctx context.Context, ticket string) (string, error)
}

var (
	ErrValidation         = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrOrderNotFound      = fmt.Errorf("order not found locally: %w", ErrNotFound)
	ErrLabelNotSaved      = fmt.Errorf("no saved label for order: %w", ErrNotFound)
	ErrNoEligibleServices = errors.New("no eligible shipping services")
	ErrLabelDataMissing   = errors.New("shipment/label data missing in response")
	ErrInjectionRejected  = errors.New("ZPL injection rejected")
	ErrAlreadyPurchased   = errors.New("label already purchased for order")
)

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Marketplace is the remote order and label source.
type Marketplace interface {
	FetchUnshippedPrimeOrders(ctx context.Context) ([]model.Order, error)
	FetchOrderItems(ctx context.Context, orderID string) ([]model.LineItem, error)
	GetEligibleServices(ctx context.Context, req model.ShipmentRequest) ([]model.ShippingService, error)
	CreateShipment(ctx context.Context, req model.ShipmentRequest, service model.ShippingService) (model.Shipment, error)
}

type Option func(*service)

func WithMarketplace(m Marketplace) Option {
	return func(s *service) { s.market = m }
}

func WithExecutor(e *remotecall.Executor) Option {
	return func(s *service) { s.executor = e }
}

func WithArtifacts(a *artifact.Artifacts) Option {
	return func(s *service) { s.artifacts = a }
}

func WithArchive(a archive.Archive) Option {
	return func(s *service) { s.archive = a }
}

type service struct {
	cfg       config.Config
	store     store.Store
	defaults  defaults.Defaults
	market    Marketplace
	executor  *remotecall.Executor
	injector  *zpl.Injector
	artifacts *artifact.Artifacts
	archive   archive.Archive
	locks     *keyedMutex
	zaplog    *zap.Logger
}

func NewService(cfg config.Config, store store.Store, zaplog *zap.Logger, opts ...Option) (Service, error) {
	if zaplog == nil {
		zaplog = zap.NewNop()
	}

	service := service{
		cfg:      cfg,
		store:    store,
		defaults: defaults.NewDefaults(store),
		injector: zpl.NewInjector(cfg.Label.X, cfg.Label.Y, zaplog),
		locks:    newKeyedMutex(),
		zaplog:   zaplog,
	}
	for _, opt := range opts {
		opt(&service)
	}

	if service.market == nil {
		if cfg.Marketplace.Offline {
			service.market = marketplace.NewSampleFixture()
		} else {
			if cfg.Marketplace.Endpoint == "" {
				return nil, errors.New("marketplace endpoint is required in online mode")
			}
			service.market = marketplace.NewClient(cfg.Marketplace)
		}
	}
	if service.executor == nil {
		service.executor = remotecall.NewExecutor(
			remotecall.WithMaxRetries(cfg.Retry.MaxRetries),
			remotecall.WithBaseDelay(cfg.Retry.BaseDelay),
			remotecall.WithLogger(zaplog),
		)
	}

	return &service, nil
}

func (service *service) ListOrders(ctx context.Context) ([]model.Order, error) {
	return service.store.OrderList(ctx)
}

func (service *service) ShippingDefaults(ctx context.Context, sku string) (model.ShippingDefaults, error) {
	if strings.TrimSpace(sku) == "" {
		return model.ShippingDefaults{}, &ValidationError{Problems: []string{"sku is required"}}
	}
	found, err := service.defaults.Get(ctx, sku)
	if errors.Is(err, defaults.ErrUnknownSKU) {
		return model.ShippingDefaults{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return found, err
}

func (service *service) Artifact(ctx context.Context, ticket string) (string, error) {
	if service.artifacts == nil {
		return "", fmt.Errorf("%w: artifacts are disabled", ErrNotFound)
	}
	content, err := service.artifacts.Open(ctx, ticket)
	switch {
	case errors.Is(err, artifact.ErrNotFound), errors.Is(err, artifact.ErrExpiredTicket):
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, artifact.ErrInvalidTicket):
		return "", &ValidationError{Problems: []string{err.Error()}}
	}
	return content, err
}
