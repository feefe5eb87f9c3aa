package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Заказы маркетплейса

type Order struct {
	ID   string
	Data OrderData
}
type OrderData struct {
	PurchaseDate time.Time
	CustomerName string
	ShipTo       Address
	Items        []LineItem
	IsPrime      bool
	Status       OrderStatus
	TrackingID   string
	Label        string
}

type OrderStatus string

const (
	OrderStatusUnshipped   OrderStatus = "Unshipped"
	OrderStatusLabelBought OrderStatus = "LabelBought"
)

type Address struct {
	Name        string `json:"name"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone,omitempty"`
}

type LineItem struct {
	OrderItemID string `json:"orderItemId,omitempty"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
}

// Distinct SKU in order of first appearance
func DistinctSKUs(items []LineItem) []string {
	seen := make(map[string]struct{}, len(items))
	var skus []string
	for _, item := range items {
		if _, ok := seen[item.SKU]; ok {
			continue
		}
		seen[item.SKU] = struct{}{}
		skus = append(skus, item.SKU)
	}
	return skus
}

// Габариты и вес посылки

type WeightUnit string

const (
	WeightUnitOunce    WeightUnit = "oz"
	WeightUnitPound    WeightUnit = "lb"
	WeightUnitGram     WeightUnit = "g"
	WeightUnitKilogram WeightUnit = "kg"
)

type Weight struct {
	Value float64    `json:"value" validate:"gt=0"`
	Unit  WeightUnit `json:"unit" validate:"oneof=oz lb g kg"`
}

// Pounds converts the weight; unknown units yield 0.
func (w Weight) Pounds() float64 {
	switch w.Unit {
	case WeightUnitOunce:
		return w.Value / 16
	case WeightUnitPound:
		return w.Value
	case WeightUnitGram:
		return w.Value / 453.59237
	case WeightUnitKilogram:
		return w.Value * 2.20462262
	default:
		return 0
	}
}

type DimensionUnit string

const (
	DimensionUnitInch       DimensionUnit = "in"
	DimensionUnitCentimeter DimensionUnit = "cm"
)

type Dimensions struct {
	Length float64       `json:"length" validate:"gt=0"`
	Width  float64       `json:"width" validate:"gt=0"`
	Height float64       `json:"height" validate:"gt=0"`
	Unit   DimensionUnit `json:"unit" validate:"oneof=in cm"`
}

func (d Dimensions) Inches() (length, width, height float64) {
	if d.Unit == DimensionUnitCentimeter {
		return d.Length / 2.54, d.Width / 2.54, d.Height / 2.54
	}
	return d.Length, d.Width, d.Height
}

// Умолчания доставки по SKU

type ShippingDefaults struct {
	SKU  string
	Data ShippingDefaultsData
}
type ShippingDefaultsData struct {
	Weight     Weight
	Dimensions Dimensions
	UpdatedAt  time.Time
}

// Покупка этикетки

type ShipmentRequest struct {
	OrderID    string
	ShipFrom   Address
	ShipTo     Address
	Items      []LineItem
	Weight     Weight
	Dimensions Dimensions
}

type ShippingService struct {
	ID       string
	OfferID  string
	Name     string
	Carrier  string
	Cost     decimal.Decimal
	Currency string
}

type Shipment struct {
	ShipmentID string
	TrackingID string
	// base64, обычно gzip
	LabelData string
}
