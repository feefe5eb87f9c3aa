package marketplace

import (
	"time"

	"github.com/shopspring/decimal"
)

// JSON форматы Selling Partner API (orders v0, merchant fulfillment v0)

type errorEnvelope struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"errors"`
}

type tokenAnswer struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type ordersAnswer struct {
	Payload struct {
		Orders    []apiOrder `json:"Orders"`
		NextToken string     `json:"NextToken"`
	} `json:"payload"`
}

type apiOrder struct {
	AmazonOrderID      string     `json:"AmazonOrderId"`
	PurchaseDate       time.Time  `json:"PurchaseDate"`
	OrderStatus        string     `json:"OrderStatus"`
	FulfillmentChannel string     `json:"FulfillmentChannel"`
	IsPrime            bool       `json:"IsPrime"`
	ShippingAddress    apiAddress `json:"ShippingAddress"`
	BuyerInfo          struct {
		BuyerName string `json:"BuyerName"`
	} `json:"BuyerInfo"`
}

type apiAddress struct {
	Name          string `json:"Name"`
	AddressLine1  string `json:"AddressLine1"`
	AddressLine2  string `json:"AddressLine2,omitempty"`
	City          string `json:"City"`
	StateOrRegion string `json:"StateOrRegion"`
	PostalCode    string `json:"PostalCode"`
	CountryCode   string `json:"CountryCode"`
	Phone         string `json:"Phone,omitempty"`
}

type orderItemsAnswer struct {
	Payload struct {
		OrderItems []struct {
			OrderItemID     string `json:"OrderItemId"`
			SellerSKU       string `json:"SellerSKU"`
			QuantityOrdered int    `json:"QuantityOrdered"`
		} `json:"OrderItems"`
		NextToken string `json:"NextToken"`
	} `json:"payload"`
}

type shipmentRequestDetails struct {
	AmazonOrderID          string           `json:"AmazonOrderId"`
	ItemList               []apiItem        `json:"ItemList"`
	ShipFromAddress        apiShipFrom      `json:"ShipFromAddress"`
	PackageDimensions      apiDimensions    `json:"PackageDimensions"`
	Weight                 apiWeight        `json:"Weight"`
	ShippingServiceOptions apiServiceOption `json:"ShippingServiceOptions"`
}

type apiItem struct {
	OrderItemID string `json:"OrderItemId"`
	Quantity    int    `json:"Quantity"`
}

type apiShipFrom struct {
	Name                string `json:"Name"`
	AddressLine1        string `json:"AddressLine1"`
	AddressLine2        string `json:"AddressLine2,omitempty"`
	City                string `json:"City"`
	StateOrProvinceCode string `json:"StateOrProvinceCode"`
	PostalCode          string `json:"PostalCode"`
	CountryCode         string `json:"CountryCode"`
	Phone               string `json:"Phone"`
}

type apiDimensions struct {
	Length float64 `json:"Length"`
	Width  float64 `json:"Width"`
	Height float64 `json:"Height"`
	Unit   string  `json:"Unit"`
}

type apiWeight struct {
	Value float64 `json:"Value"`
	Unit  string  `json:"Unit"`
}

type apiServiceOption struct {
	DeliveryExperience string `json:"DeliveryExperience"`
	CarrierWillPickUp  bool   `json:"CarrierWillPickUp"`
	LabelFormat        string `json:"LabelFormat"`
}

type eligibleServicesRequest struct {
	ShipmentRequestDetails shipmentRequestDetails `json:"ShipmentRequestDetails"`
}

type eligibleServicesAnswer struct {
	Payload struct {
		ShippingServiceList []struct {
			ShippingServiceName    string `json:"ShippingServiceName"`
			CarrierName            string `json:"CarrierName"`
			ShippingServiceID      string `json:"ShippingServiceId"`
			ShippingServiceOfferID string `json:"ShippingServiceOfferId"`
			Rate                   struct {
				CurrencyCode string          `json:"CurrencyCode"`
				Amount       decimal.Decimal `json:"Amount"`
			} `json:"Rate"`
		} `json:"ShippingServiceList"`
	} `json:"payload"`
}

type createShipmentRequest struct {
	ShipmentRequestDetails shipmentRequestDetails `json:"ShipmentRequestDetails"`
	ShippingServiceID      string                 `json:"ShippingServiceId"`
	ShippingServiceOfferID string                 `json:"ShippingServiceOfferId,omitempty"`
}

type createShipmentAnswer struct {
	Payload struct {
		ShipmentID string `json:"ShipmentId"`
		TrackingID string `json:"TrackingId"`
		Label      struct {
			FileContents struct {
				Contents string `json:"Contents"`
				FileType string `json:"FileType"`
			} `json:"FileContents"`
		} `json:"Label"`
	} `json:"payload"`
}
