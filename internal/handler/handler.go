package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/primelabel/internal/gzip"
	"github.com/iurnickita/primelabel/internal/handler/config"
	"github.com/iurnickita/primelabel/internal/logger"
	"github.com/iurnickita/primelabel/internal/model"
	"github.com/iurnickita/primelabel/internal/service"
	"github.com/iurnickita/primelabel/internal/service/marketplace"
	"github.com/iurnickita/primelabel/internal/store"
)

const zplContentType = "application/x-zpl; charset=utf-8"

// Serve blocks until ctx is done or the server fails.
func Serve(ctx context.Context, cfg config.Config, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(service, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	errc := make(chan error, 1)
	go func() {
		zaplog.Info("http server started", zap.String("addr", cfg.ServerAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

type handler struct {
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(service service.Service, zaplog *zap.Logger) *handler {
	if zaplog == nil {
		zaplog = zap.NewNop()
	}
	return &handler{
		service: service,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders/sync", h.wrap(h.SyncOrders))
	mux.HandleFunc("GET /api/orders", h.wrap(h.ListOrders))
	mux.HandleFunc("POST /api/labels/purchase", h.wrap(h.PurchaseLabel))
	mux.HandleFunc("POST /api/labels/purchase/bulk", h.wrap(h.PurchaseLabels))
	mux.HandleFunc("GET /api/labels/{orderID}", h.wrap(h.ReprintLabel))
	mux.HandleFunc("POST /api/labels/reprint/bulk", h.wrap(h.ReprintLabels))
	mux.HandleFunc("POST /api/labels/preview", h.wrap(h.PreviewInjection))
	mux.HandleFunc("GET /api/labels/artifacts/{ticket}", h.wrap(h.Artifact))
	mux.HandleFunc("GET /api/shipping-defaults/{sku}", h.wrap(h.ShippingDefaults))

	return mux
}

func (h *handler) wrap(fn http.HandlerFunc) http.HandlerFunc {
	return gzip.GzipMiddleware(logger.RequestLogMdlw(fn, h.zaplog))
}

func (h *handler) SyncOrders(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SyncOrders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type OrderJSONResponse struct {
	ID           string           `json:"id"`
	PurchaseDate time.Time        `json:"purchaseDate"`
	CustomerName string           `json:"customerName"`
	ShipTo       model.Address    `json:"shipTo"`
	Items        []model.LineItem `json:"items"`
	IsPrime      bool             `json:"isPrime"`
	Status       string           `json:"status"`
	TrackingID   string           `json:"trackingId,omitempty"`
	HasLabel     bool             `json:"hasLabel"`
}

func (h *handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ordersJSON := make([]OrderJSONResponse, 0, len(orders))
	for _, order := range orders {
		ordersJSON = append(ordersJSON, OrderJSONResponse{
			ID:           order.ID,
			PurchaseDate: order.Data.PurchaseDate,
			CustomerName: order.Data.CustomerName,
			ShipTo:       order.Data.ShipTo,
			Items:        order.Data.Items,
			IsPrime:      order.Data.IsPrime,
			Status:       string(order.Data.Status),
			TrackingID:   order.Data.TrackingID,
			HasLabel:     order.Data.Label != "",
		})
	}
	writeJSON(w, http.StatusOK, ordersJSON)
}

type PurchaseJSONRequest struct {
	OrderID    string           `json:"orderId"`
	Weight     model.Weight     `json:"weight"`
	Dimensions model.Dimensions `json:"dimensions"`
	X          *Coordinate      `json:"x"`
	Y          *Coordinate      `json:"y"`
}

func (h *handler) PurchaseLabel(w http.ResponseWriter, r *http.Request) {
	var req PurchaseJSONRequest
	if !readJSON(w, r, &req) {
		return
	}

	res, err := h.service.PurchaseLabel(r.Context(), service.PurchaseRequest{
		OrderID:    req.OrderID,
		Weight:     req.Weight,
		Dimensions: req.Dimensions,
		X:          req.X.Int(),
		Y:          req.Y.Int(),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type BulkPurchaseJSONRequest struct {
	OrderIDs   []string         `json:"orderIds"`
	Weight     model.Weight     `json:"weight"`
	Dimensions model.Dimensions `json:"dimensions"`
	X          *Coordinate      `json:"x"`
	Y          *Coordinate      `json:"y"`
}

func (h *handler) PurchaseLabels(w http.ResponseWriter, r *http.Request) {
	var req BulkPurchaseJSONRequest
	if !readJSON(w, r, &req) {
		return
	}

	report, err := h.service.PurchaseLabels(r.Context(), service.BulkPurchaseRequest{
		OrderIDs:   req.OrderIDs,
		Weight:     req.Weight,
		Dimensions: req.Dimensions,
		X:          req.X.Int(),
		Y:          req.Y.Int(),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) ReprintLabel(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	res, err := h.service.ReprintLabel(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Tracking-Id", res.TrackingID)
	writeZPL(w, res.OrderID+".zpl", res.Label)
}

type BulkReprintJSONRequest struct {
	OrderIDs []string `json:"orderIds"`
}

func (h *handler) ReprintLabels(w http.ResponseWriter, r *http.Request) {
	var req BulkReprintJSONRequest
	if !readJSON(w, r, &req) {
		return
	}

	report, err := h.service.ReprintLabels(r.Context(), req.OrderIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type PreviewJSONRequest struct {
	Label    string      `json:"label"`
	SKU      string      `json:"sku"`
	Quantity float64     `json:"quantity"`
	X        *Coordinate `json:"x"`
	Y        *Coordinate `json:"y"`
	DryRun   bool        `json:"dryRun"`
}

func (h *handler) PreviewInjection(w http.ResponseWriter, r *http.Request) {
	var req PreviewJSONRequest
	if !readJSON(w, r, &req) {
		return
	}

	res, err := h.service.PreviewInjection(service.PreviewRequest{
		Label:    req.Label,
		SKU:      req.SKU,
		Quantity: req.Quantity,
		X:        req.X.Int(),
		Y:        req.Y.Int(),
		DryRun:   req.DryRun,
	})
	if err != nil {
		// результат проверки нужен и при отказе
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) Artifact(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.Artifact(r.Context(), r.PathValue("ticket"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeZPL(w, "labels.zpl", content)
}

type ShippingDefaultsJSONResponse struct {
	SKU        string           `json:"sku"`
	Weight     model.Weight     `json:"weight"`
	Dimensions model.Dimensions `json:"dimensions"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func (h *handler) ShippingDefaults(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.ShippingDefaults(r.Context(), r.PathValue("sku"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ShippingDefaultsJSONResponse{
		SKU:        found.SKU,
		Weight:     found.Data.Weight,
		Dimensions: found.Data.Dimensions,
		UpdatedAt:  found.Data.UpdatedAt,
	})
}

type errorJSONResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

// statusOf maps service errors to HTTP codes.
func statusOf(err error) int {
	var apiErr *marketplace.APIError
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyPurchased), errors.Is(err, store.ErrAlreadyFinalized):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoEligibleServices), errors.Is(err, service.ErrInjectionRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrLabelDataMissing), errors.As(err, &apiErr),
		errors.Is(err, marketplace.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		h.zaplog.Error("request failed", zap.Error(err))
	}

	resp := errorJSONResponse{Error: err.Error()}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp.Problems = verr.Problems
	}
	writeJSON(w, code, resp)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(buf.Bytes(), dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSONResponse{Error: err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(responseJSON)
}

func writeZPL(w http.ResponseWriter, filename, content string) {
	w.Header().Set("Content-Type", zplContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write([]byte(content))
}
