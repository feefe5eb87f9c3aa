package marketplace

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iurnickita/primelabel/internal/model"
)

const (
	OpFetchOrders       = "FetchUnshippedPrimeOrders"
	OpFetchItems        = "FetchOrderItems"
	OpEligibleServices  = "GetEligibleServices"
	OpCreateShipment    = "CreateShipment"
	fixtureLabelPattern = "^XA\n^PW812\n^LL1218\n^FO50,50^A0N,40,40^FD%s^FS\n^FO50,120^BCN,100,Y,N,N^FD%s^FS\n^XZ\n"
)

// Fixture is an in-process marketplace with the same contract as Client.
// Every instance has its own state.
type Fixture struct {
	mu        sync.Mutex
	orders    []model.Order
	items     map[string][]model.LineItem
	services  []model.ShippingService
	labels    map[string]string
	failures  map[string][]error
	calls     map[string]int
	shipments int
}

// NewFixture returns a fixture without orders and with three shipping services.
func NewFixture() *Fixture {
	return &Fixture{
		items:    make(map[string][]model.LineItem),
		labels:   make(map[string]string),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
		services: []model.ShippingService{
			{ID: "USPS_PTP_PRI", Name: "USPS Priority Mail", Carrier: "USPS", Cost: decimal.RequireFromString("8.45"), Currency: "USD"},
			{ID: "USPS_PTP_FC", Name: "USPS First Class", Carrier: "USPS", Cost: decimal.RequireFromString("4.95"), Currency: "USD"},
			{ID: "UPS_PTP_GND", Name: "UPS Ground", Carrier: "UPS", Cost: decimal.RequireFromString("9.10"), Currency: "USD"},
		},
	}
}

// NewSampleFixture is NewFixture seeded with a few orders, used in offline mode.
func NewSampleFixture() *Fixture {
	f := NewFixture()
	purchased := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	sample := []struct {
		id, name string
		prime    bool
		items    []model.LineItem
	}{
		{"113-4820571-0000001", "Jane Doe", true, []model.LineItem{{OrderItemID: "41001", SKU: "MUG-BLUE-12OZ", Quantity: 2}}},
		{"113-4820571-0000002", "John Roe", true, []model.LineItem{{OrderItemID: "41002", SKU: "TSHIRT-L", Quantity: 1}, {OrderItemID: "41003", SKU: "TSHIRT-M", Quantity: 1}}},
		{"113-4820571-0000003", "Ann Lee", true, []model.LineItem{{OrderItemID: "41004", SKU: "PREMIUM-CERAMIC-COFFEE-MUG-16OZ", Quantity: 1}}},
		{"113-4820571-0000004", "Bob Smith", false, []model.LineItem{{OrderItemID: "41005", SKU: "MUG-BLUE-12OZ", Quantity: 1}}},
	}
	for i, s := range sample {
		f.AddOrder(model.Order{
			ID: s.id,
			Data: model.OrderData{
				PurchaseDate: purchased.Add(time.Duration(i) * time.Hour),
				CustomerName: s.name,
				ShipTo:       model.Address{Name: s.name, Line1: fmt.Sprintf("%d Main St", 100+i), City: "Austin", State: "TX", PostalCode: "78701", CountryCode: "US"},
				IsPrime:      s.prime,
				Status:       model.OrderStatusUnshipped,
			},
		}, s.items...)
	}
	return f
}

func (f *Fixture) AddOrder(order model.Order, items ...model.LineItem) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order.Data.Items = nil
	f.orders = slices.DeleteFunc(f.orders, func(o model.Order) bool { return o.ID == order.ID })
	f.orders = append(f.orders, order)
	f.items[order.ID] = slices.Clone(items)
}

func (f *Fixture) SetServices(services ...model.ShippingService) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.services = slices.Clone(services)
}

// SetLabel overrides the ZPL returned for orderID. An empty zpl makes the
// shipment come back without label contents.
func (f *Fixture) SetLabel(orderID, zpl string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels[orderID] = zpl
}

// FailNext queues errors returned by the next calls of op, one per call.
func (f *Fixture) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

func (f *Fixture) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter counts the call and pops a queued failure; f.mu must be held.
func (f *Fixture) enter(op string) error {
	f.calls[op]++
	queue := f.failures[op]
	if len(queue) == 0 {
		return nil
	}
	f.failures[op] = queue[1:]
	return queue[0]
}

func (f *Fixture) FetchUnshippedPrimeOrders(_ context.Context) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpFetchOrders); err != nil {
		return nil, err
	}

	var orders []model.Order
	for _, o := range f.orders {
		if o.Data.IsPrime && o.Data.Status == model.OrderStatusUnshipped {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (f *Fixture) FetchOrderItems(_ context.Context, orderID string) ([]model.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpFetchItems); err != nil {
		return nil, err
	}
	items, ok := f.items[orderID]
	if !ok {
		return nil, &APIError{StatusCode: 404, Code: "NotFound", Message: "order " + orderID + " not found"}
	}
	return slices.Clone(items), nil
}

func (f *Fixture) GetEligibleServices(_ context.Context, _ model.ShipmentRequest) ([]model.ShippingService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpEligibleServices); err != nil {
		return nil, err
	}
	return slices.Clone(f.services), nil
}

func (f *Fixture) CreateShipment(_ context.Context, req model.ShipmentRequest, service model.ShippingService) (model.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpCreateShipment); err != nil {
		return model.Shipment{}, err
	}

	f.shipments++
	tracking := fmt.Sprintf("9400%016d", f.shipments)
	shipment := model.Shipment{
		ShipmentID: fmt.Sprintf("%s-%s-%d", req.OrderID, service.ID, f.shipments),
		TrackingID: tracking,
	}

	zpl, ok := f.labels[req.OrderID]
	if !ok {
		zpl = fmt.Sprintf(fixtureLabelPattern, req.ShipTo.Name, tracking)
	}
	if zpl == "" {
		return shipment, nil
	}
	data, err := EncodeLabel(zpl)
	if err != nil {
		return model.Shipment{}, err
	}
	shipment.LabelData = data
	return shipment, nil
}
