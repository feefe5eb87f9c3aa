package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iurnickita/primelabel/internal/artifact"
	"github.com/iurnickita/primelabel/internal/service"
	"github.com/iurnickita/primelabel/internal/service/config"
	"github.com/iurnickita/primelabel/internal/service/marketplace"
	"github.com/iurnickita/primelabel/internal/service/remotecall"
	"github.com/iurnickita/primelabel/internal/store"
	"github.com/iurnickita/primelabel/internal/zpl"
)

const (
	firstOrder  = "113-4820571-0000001"
	secondOrder = "113-4820571-0000002"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	zaplog := zaptest.NewLogger(t)
	artifacts, err := artifact.New(artifact.NewMemStore(), "test-secret", time.Hour)
	require.NoError(t, err)

	svc, err := service.NewService(config.Config{
		Label:           config.Label{X: zpl.DefaultX, Y: zpl.DefaultY},
		BulkConcurrency: 1,
	}, store.NewMemStore(), zaplog,
		service.WithMarketplace(marketplace.NewSampleFixture()),
		service.WithExecutor(remotecall.NewExecutor(
			remotecall.WithSleep(func(context.Context, time.Duration) error { return nil }))),
		service.WithArtifacts(artifacts),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(newHandler(svc, zaplog).newRouter())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func purchaseBody(orderID string, extra string) string {
	return fmt.Sprintf(`{"orderId":%q,"weight":{"value":200,"unit":"oz"},"dimensions":{"length":10,"width":6,"height":2,"unit":"in"}%s}`, orderID, extra)
}

func TestOrdersAndLabels(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, srv, http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPost, "/api/orders/sync", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"fetched":3,"inserted":3,"updated":0,"skipped":0}`, body)

	resp, body = do(t, srv, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var orders []OrderJSONResponse
	require.NoError(t, json.Unmarshal([]byte(body), &orders))
	assert.Len(t, orders, 3)

	// координата строкой
	resp, body = do(t, srv, http.MethodPost, "/api/labels/purchase", purchaseBody(firstOrder, `,"x":"60"`))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var bought service.LabelResult
	require.NoError(t, json.Unmarshal([]byte(body), &bought))
	assert.Contains(t, bought.Label, "^FO60,1100^GB700,80,3^FS")

	resp, _ = do(t, srv, http.MethodPost, "/api/labels/purchase", purchaseBody(firstOrder, ""))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/labels/"+firstOrder, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, bought.Label, body)
	assert.Equal(t, bought.TrackingID, resp.Header.Get("X-Tracking-Id"))
	assert.Equal(t, zplContentType, resp.Header.Get("Content-Type"))

	resp, _ = do(t, srv, http.MethodGet, "/api/labels/"+secondOrder, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/shipping-defaults/MUG-BLUE-12OZ", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"weight":{"value":200,"unit":"oz"}`)

	resp, _ = do(t, srv, http.MethodGet, "/api/shipping-defaults/NOPE", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBulkAndArtifact(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := do(t, srv, http.MethodPost, "/api/orders/sync", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPost, "/api/labels/purchase/bulk",
		`{"orderIds":["`+firstOrder+`","missing","`+secondOrder+`"],"weight":{"value":1,"unit":"lb"},"dimensions":{"length":20,"width":10,"height":5,"unit":"cm"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var report service.BatchReport
	require.NoError(t, json.Unmarshal([]byte(body), &report))
	assert.Equal(t, service.BatchSummary{Total: 3, Succeeded: 2, Failed: 1}, report.Summary)
	assert.False(t, report.Entries[1].OK)
	assert.Contains(t, report.Entries[1].Error, "order not found locally")
	require.NotNil(t, report.Artifact)

	resp, body = do(t, srv, http.MethodGet, "/api/labels/artifacts/"+report.Artifact.Token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, report.Combined, body)
	assert.Equal(t, 2, strings.Count(body, zpl.StartMarker))

	resp, _ = do(t, srv, http.MethodGet, "/api/labels/artifacts/not-a-ticket", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPost, "/api/labels/reprint/bulk", `{"orderIds":["`+secondOrder+`","missing"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(body), &report))
	assert.Equal(t, service.BatchSummary{Total: 2, Succeeded: 1, Failed: 1}, report.Summary)

	resp, _ = do(t, srv, http.MethodPost, "/api/labels/reprint/bulk", `{"orderIds":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/labels/purchase",
		`{"orderId":"x","weight":{"value":200,"unit":"lb"},"dimensions":{"length":10,"width":6,"height":2,"unit":"in"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp errorJSONResponse
	require.NoError(t, json.Unmarshal([]byte(body), &errResp))
	require.NotEmpty(t, errResp.Problems)
	assert.Contains(t, errResp.Problems[0], "exceeds limit")

	resp, _ = do(t, srv, http.MethodPost, "/api/labels/purchase", `{"orderId":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/api/labels/purchase", purchaseBody("x", `,"y":false`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/api/labels/purchase", purchaseBody("unknown", ""))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreview(t *testing.T) {
	srv := newTestServer(t)
	label := `^XA\n^PW800\n^LL1218\n^XZ`

	resp, body := do(t, srv, http.MethodPost, "/api/labels/preview", `{"label":"`+label+`","sku":"MUG","quantity":2,"x":40.4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var res service.PreviewResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.True(t, res.Validation.OK)
	assert.Equal(t, 40, res.Injection.X)
	assert.Contains(t, res.Injection.Label, "SKU: MUG  QTY: 2")
	assert.Contains(t, body, `"injection":{"label":`)
	assert.Contains(t, body, `"validation":{"ok":true`)

	// отрицательная или нечисловая координата заменяется значением по умолчанию
	resp, body = do(t, srv, http.MethodPost, "/api/labels/preview", `{"label":"`+label+`","sku":"MUG","x":"left","y":-5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, zpl.DefaultX, res.Injection.X)
	assert.Equal(t, zpl.DefaultY, res.Injection.Y)

	resp, body = do(t, srv, http.MethodPost, "/api/labels/preview", `{"label":"`+label+`","sku":"MUG","x":500}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "exceeds label bounds")
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&service.ValidationError{Problems: []string{"bad"}}, http.StatusBadRequest},
		{fmt.Errorf("%w: 1", service.ErrOrderNotFound), http.StatusNotFound},
		{service.ErrLabelNotSaved, http.StatusNotFound},
		{service.ErrAlreadyPurchased, http.StatusConflict},
		{store.ErrAlreadyFinalized, http.StatusConflict},
		{service.ErrNoEligibleServices, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %w", service.ErrInjectionRejected, zpl.ErrFormat), http.StatusUnprocessableEntity},
		{service.ErrLabelDataMissing, http.StatusBadGateway},
		{&marketplace.APIError{StatusCode: 403, Code: "Unauthorized"}, http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, statusOf(tc.err), tc.err.Error())
	}
}

func TestCoordinate(t *testing.T) {
	var req struct {
		X *Coordinate `json:"x"`
		Y *Coordinate `json:"y"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"x":" 12 ","y":null}`), &req))
	assert.Equal(t, 12, *req.X.Int())
	assert.Nil(t, req.Y.Int())

	require.NoError(t, json.Unmarshal([]byte(`{"x":-3}`), &req))
	assert.Equal(t, -3, *req.X.Int())

	require.NoError(t, json.Unmarshal([]byte(`{"x":"12.6"}`), &req))
	assert.Equal(t, 13, *req.X.Int())

	// не число или слишком большое значение: координата не задана
	for _, raw := range []string{`{"x":"1e"}`, `{"x":"left"}`, `{"x":""}`, `{"x":1e300}`, `{"x":"99999999999999999999"}`} {
		req.X = nil
		require.NoError(t, json.Unmarshal([]byte(raw), &req), raw)
		assert.Nil(t, req.X.Int(), raw)
	}

	require.Error(t, json.Unmarshal([]byte(`{"x":true}`), &req))
}
