package service

import (
	"github.com/iurnickita/primelabel/internal/artifact"
	"github.com/iurnickita/primelabel/internal/model"
	"github.com/iurnickita/primelabel/internal/zpl"
)

type SyncReport struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

type PurchaseRequest struct {
	OrderID    string           `json:"orderId" validate:"required"`
	Weight     model.Weight     `json:"weight"`
	Dimensions model.Dimensions `json:"dimensions"`
	// Координаты блока SKU; nil: из конфигурации
	X *int `json:"x,omitempty"`
	Y *int `json:"y,omitempty"`
}

type BulkPurchaseRequest struct {
	OrderIDs   []string         `json:"orderIds" validate:"min=1,max=50,dive,required"`
	Weight     model.Weight     `json:"weight"`
	Dimensions model.Dimensions `json:"dimensions"`
	X          *int             `json:"x,omitempty"`
	Y          *int             `json:"y,omitempty"`
}

type reprintRequest struct {
	OrderIDs []string `json:"orderIds" validate:"min=1,max=50,dive,required"`
}

type LabelResult struct {
	OrderID    string                 `json:"orderId"`
	TrackingID string                 `json:"trackingId"`
	Service    *model.ShippingService `json:"service,omitempty"`
	Label      string                 `json:"label"`
	Warnings   []string               `json:"warnings,omitempty"`
}

type BatchEntry struct {
	OrderID    string `json:"orderId"`
	OK         bool   `json:"ok"`
	TrackingID string `json:"trackingId,omitempty"`
	Error      string `json:"error,omitempty"`
	// Err is the original failure, for errors.Is on the caller side
	Err error `json:"-"`
}

type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BatchReport is the outcome of a bulk purchase or reprint. It is never stored.
type BatchReport struct {
	ID       string           `json:"id"`
	Entries  []BatchEntry     `json:"entries"`
	Summary  BatchSummary     `json:"summary"`
	Combined string           `json:"combined"`
	Artifact *artifact.Ticket `json:"artifact,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

type PreviewRequest struct {
	Label    string  `json:"label"`
	SKU      string  `json:"sku"`
	Quantity float64 `json:"quantity"`
	X        *int    `json:"x,omitempty"`
	Y        *int    `json:"y,omitempty"`
	DryRun   bool    `json:"dryRun"`
}

type PreviewResult struct {
	Validation zpl.ValidationResult `json:"validation"`
	Injection  zpl.Result           `json:"injection"`
	Error      string               `json:"error,omitempty"`
}
