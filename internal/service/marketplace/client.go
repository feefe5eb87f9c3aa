// Package marketplace talks to the marketplace Selling Partner API: orders
// and merchant-fulfilled shipping labels. Fixture is the offline stand-in.
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/iurnickita/primelabel/internal/model"
	"github.com/iurnickita/primelabel/internal/service/config"
)

const (
	ordersLookback = 30 * 24 * time.Hour
	tokenLeeway    = time.Minute
	labelFormat    = "ZPL203"
)

// ErrMalformedResponse: тело ответа не разбирается
var ErrMalformedResponse = errors.New("malformed marketplace response")

// APIError is a non-2xx answer of the marketplace API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace api: status %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) HTTPStatus() int   { return e.StatusCode }
func (e *APIError) ErrorCode() string { return e.Code }

type Client struct {
	cfg  config.Marketplace
	http *resty.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewClient(cfg config.Marketplace) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{cfg: cfg, http: httpClient, now: time.Now}
}

func (client *Client) FetchUnshippedPrimeOrders(ctx context.Context) ([]model.Order, error) {
	query := map[string]string{
		"MarketplaceIds":      client.cfg.MarketplaceID,
		"OrderStatuses":       "Unshipped",
		"FulfillmentChannels": "MFN",
		"CreatedAfter":        client.now().Add(-ordersLookback).UTC().Format(time.RFC3339),
	}

	var orders []model.Order
	for {
		var answer ordersAnswer
		if err := client.do(ctx, http.MethodGet, "/orders/v0/orders", query, nil, &answer); err != nil {
			return nil, err
		}
		for _, o := range answer.Payload.Orders {
			// только Prime, отгрузка продавцом
			if !o.IsPrime || o.FulfillmentChannel != "MFN" || o.OrderStatus != "Unshipped" {
				continue
			}
			orders = append(orders, convertOrder(o))
		}
		if answer.Payload.NextToken == "" {
			return orders, nil
		}
		query = map[string]string{
			"MarketplaceIds": client.cfg.MarketplaceID,
			"NextToken":      answer.Payload.NextToken,
		}
	}
}

func (client *Client) FetchOrderItems(ctx context.Context, orderID string) ([]model.LineItem, error) {
	path := "/orders/v0/orders/" + url.PathEscape(orderID) + "/orderItems"
	query := map[string]string{}

	var items []model.LineItem
	for {
		var answer orderItemsAnswer
		if err := client.do(ctx, http.MethodGet, path, query, nil, &answer); err != nil {
			return nil, err
		}
		for _, it := range answer.Payload.OrderItems {
			items = append(items, model.LineItem{
				OrderItemID: it.OrderItemID,
				SKU:         it.SellerSKU,
				Quantity:    it.QuantityOrdered,
			})
		}
		if answer.Payload.NextToken == "" {
			return items, nil
		}
		query = map[string]string{"NextToken": answer.Payload.NextToken}
	}
}

func (client *Client) GetEligibleServices(ctx context.Context, req model.ShipmentRequest) ([]model.ShippingService, error) {
	body := eligibleServicesRequest{ShipmentRequestDetails: requestDetails(req)}

	var answer eligibleServicesAnswer
	if err := client.do(ctx, http.MethodPost, "/mfn/v0/eligibleShippingServices", nil, body, &answer); err != nil {
		return nil, err
	}

	services := make([]model.ShippingService, 0, len(answer.Payload.ShippingServiceList))
	for _, s := range answer.Payload.ShippingServiceList {
		services = append(services, model.ShippingService{
			ID:       s.ShippingServiceID,
			OfferID:  s.ShippingServiceOfferID,
			Name:     s.ShippingServiceName,
			Carrier:  s.CarrierName,
			Cost:     s.Rate.Amount,
			Currency: s.Rate.CurrencyCode,
		})
	}
	return services, nil
}

func (client *Client) CreateShipment(ctx context.Context, req model.ShipmentRequest, service model.ShippingService) (model.Shipment, error) {
	body := createShipmentRequest{
		ShipmentRequestDetails: requestDetails(req),
		ShippingServiceID:      service.ID,
		ShippingServiceOfferID: service.OfferID,
	}

	var answer createShipmentAnswer
	if err := client.do(ctx, http.MethodPost, "/mfn/v0/shipments", nil, body, &answer); err != nil {
		return model.Shipment{}, err
	}
	return model.Shipment{
		ShipmentID: answer.Payload.ShipmentID,
		TrackingID: answer.Payload.TrackingID,
		LabelData:  answer.Payload.Label.FileContents.Contents,
	}, nil
}

func (client *Client) do(ctx context.Context, method, path string, query map[string]string, body any, result any) error {
	token, err := client.accessToken(ctx)
	if err != nil {
		return err
	}

	req := client.http.R().SetContext(ctx)
	if token != "" {
		req.SetHeader("x-amz-access-token", token)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// accessToken exchanges the refresh token for an access token and caches it.
// Without a refresh token requests go out unauthenticated (sandbox, tests).
func (client *Client) accessToken(ctx context.Context) (string, error) {
	if client.cfg.RefreshToken == "" {
		return "", nil
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	if client.token != "" && client.now().Add(tokenLeeway).Before(client.tokenExpiry) {
		return client.token, nil
	}

	resp, err := client.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": client.cfg.RefreshToken,
			"client_id":     client.cfg.ClientID,
			"client_secret": client.cfg.ClientSecret,
		}).
		Post(client.cfg.TokenEndpoint)
	if err != nil {
		return "", err
	}

	var answer tokenAnswer
	_ = json.Unmarshal(resp.Body(), &answer)
	if resp.IsError() {
		return "", &APIError{StatusCode: resp.StatusCode(), Code: answer.Error, Message: answer.ErrorDescription}
	}
	if answer.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrMalformedResponse)
	}

	client.token = answer.AccessToken
	client.tokenExpiry = client.now().Add(time.Duration(answer.ExpiresIn) * time.Second)
	return client.token, nil
}

func apiError(resp *resty.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	var envelope errorEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err == nil && len(envelope.Errors) > 0 {
		apiErr.Code = envelope.Errors[0].Code
		apiErr.Message = envelope.Errors[0].Message
	}
	return apiErr
}

func convertOrder(o apiOrder) model.Order {
	name := o.ShippingAddress.Name
	if name == "" {
		name = o.BuyerInfo.BuyerName
	}
	return model.Order{
		ID: o.AmazonOrderID,
		Data: model.OrderData{
			PurchaseDate: o.PurchaseDate,
			CustomerName: name,
			ShipTo: model.Address{
				Name:        o.ShippingAddress.Name,
				Line1:       o.ShippingAddress.AddressLine1,
				Line2:       o.ShippingAddress.AddressLine2,
				City:        o.ShippingAddress.City,
				State:       o.ShippingAddress.StateOrRegion,
				PostalCode:  o.ShippingAddress.PostalCode,
				CountryCode: o.ShippingAddress.CountryCode,
				Phone:       o.ShippingAddress.Phone,
			},
			IsPrime: o.IsPrime,
			Status:  model.OrderStatusUnshipped,
		},
	}
}

func requestDetails(req model.ShipmentRequest) shipmentRequestDetails {
	details := shipmentRequestDetails{
		AmazonOrderID: req.OrderID,
		ShipFromAddress: apiShipFrom{
			Name:                req.ShipFrom.Name,
			AddressLine1:        req.ShipFrom.Line1,
			AddressLine2:        req.ShipFrom.Line2,
			City:                req.ShipFrom.City,
			StateOrProvinceCode: req.ShipFrom.State,
			PostalCode:          req.ShipFrom.PostalCode,
			CountryCode:         req.ShipFrom.CountryCode,
			Phone:               req.ShipFrom.Phone,
		},
		PackageDimensions: apiDimensions{
			Length: req.Dimensions.Length,
			Width:  req.Dimensions.Width,
			Height: req.Dimensions.Height,
			Unit:   "inches",
		},
		ShippingServiceOptions: apiServiceOption{
			DeliveryExperience: "DeliveryConfirmationWithoutSignature",
			CarrierWillPickUp:  false,
			LabelFormat:        labelFormat,
		},
	}
	if req.Dimensions.Unit == model.DimensionUnitCentimeter {
		details.PackageDimensions.Unit = "centimeters"
	}

	// API принимает только oz и g
	switch req.Weight.Unit {
	case model.WeightUnitPound:
		details.Weight = apiWeight{Value: req.Weight.Value * 16, Unit: "oz"}
	case model.WeightUnitKilogram:
		details.Weight = apiWeight{Value: req.Weight.Value * 1000, Unit: "g"}
	default:
		details.Weight = apiWeight{Value: req.Weight.Value, Unit: string(req.Weight.Unit)}
	}

	for _, item := range req.Items {
		details.ItemList = append(details.ItemList, apiItem{
			OrderItemID: item.OrderItemID,
			Quantity:    item.Quantity,
		})
	}
	return details
}
