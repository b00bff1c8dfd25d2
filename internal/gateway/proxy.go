package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dejobratic/orderflow/internal/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// CreateOrderRequest is the shape checked before a create is forwarded.
// Items are validated for presence only; the order service owns their rules.
type CreateOrderRequest struct {
	CustomerName string            `json:"customerName" validate:"required"`
	Items        []json.RawMessage `json:"items" validate:"required,min=1"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Route is one entry of the gateway's ordered route table.
type Route struct {
	Name    string
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Proxy is the gateway's only external surface for orders.
type Proxy struct {
	orders   *Client
	logger   *slog.Logger
	metrics  *Metrics
	validate *validator.Validate
}

// NewProxy returns a proxy forwarding to the order service. metrics may be nil.
func NewProxy(orders *Client, logger *slog.Logger, metrics *Metrics) *Proxy {
	return &Proxy{
		orders:   orders,
		logger:   logger,
		metrics:  metrics,
		validate: httpx.NewValidator(),
	}
}

// Routes lists the order routes in registration order. More specific
// patterns come first so /orders/{id}/status is never taken for an id.
func (p *Proxy) Routes() []Route {
	return []Route{
		{Name: "list_orders", Method: http.MethodGet, Pattern: "/orders", Handler: p.listOrders},
		{Name: "get_order_status", Method: http.MethodGet, Pattern: "/orders/{id}/status", Handler: p.getOrderStatus},
		{Name: "create_order", Method: http.MethodPost, Pattern: "/orders", Handler: p.createOrder},
		{Name: "update_order_status", Method: http.MethodPatch, Pattern: "/orders/{id}/status", Handler: p.updateOrderStatus},
		{Name: "get_order", Method: http.MethodGet, Pattern: "/orders/{id}", Handler: p.getOrder},
	}
}

func (p *Proxy) listOrders(w http.ResponseWriter, r *http.Request) {
	var query []QueryParam
	params := r.URL.Query()
	for _, key := range []string{"limit", "skip"} {
		if value := params.Get(key); value != "" {
			query = append(query, QueryParam{Key: key, Value: value})
		}
	}

	p.forward(w, r, "list_orders", Outbound{Method: http.MethodGet, Path: "/orders", Query: query})
}

func (p *Proxy) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	p.forward(w, r, "get_order_status", Outbound{Method: http.MethodGet, Path: "/orders/" + url.PathEscape(id) + "/status"})
}

func (p *Proxy) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	p.forward(w, r, "get_order", Outbound{Method: http.MethodGet, Path: "/orders/" + url.PathEscape(id)})
}

func (p *Proxy) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	raw, ok := p.decode(w, r, &req)
	if !ok {
		return
	}
	p.forward(w, r, "create_order", Outbound{Method: http.MethodPost, Path: "/orders", Body: raw})
}

func (p *Proxy) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	raw, ok := p.decode(w, r, &req)
	if !ok {
		return
	}
	p.forward(w, r, "update_order_status", Outbound{Method: http.MethodPatch, Path: "/orders/" + url.PathEscape(id) + "/status", Body: raw})
}

// decode reads the body, checks it against dst's rules and returns the raw
// bytes to forward untouched. It answers 400 itself when the body is rejected.
func (p *Proxy) decode(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid JSON payload")
		return nil, false
	}
	if err := p.validate.Struct(dst); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, httpx.ValidationMessage(err))
		return nil, false
	}
	return raw, true
}

// orderID returns the decoded id segment. chi hands back the escaped form
// when the request path carried escapes, so it is unescaped here and escaped
// exactly once when the outbound path is built.
func orderID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid order id")
		return "", false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		httpx.RespondError(w, http.StatusBadRequest, "order id is required")
		return "", false
	}
	return id, true
}

func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, route string, out Outbound) {
	out.Header = r.Header.Clone()
	if out.Header.Get("X-Request-Id") == "" {
		if id := middleware.GetReqID(r.Context()); id != "" {
			out.Header.Set("X-Request-Id", id)
		}
	}

	start := time.Now()
	resp, err := p.orders.Forward(r.Context(), out)
	outcome := "success"

	if err != nil {
		var perr *ProxyError
		if errors.As(err, &perr) {
			outcome = perr.Kind.String()
		} else {
			outcome = InternalError.String()
		}
		p.metrics.RecordForward(r.Context(), p.orders.Upstream().Name, route, outcome, time.Since(start).Seconds())
		p.fail(w, r, route, err)
		return
	}

	p.metrics.RecordForward(r.Context(), p.orders.Upstream().Name, route, outcome, time.Since(start).Seconds())
	relay(w, resp.StatusCode, resp.ContentType, resp.Body)
}

func (p *Proxy) fail(w http.ResponseWriter, r *http.Request, route string, err error) {
	var perr *ProxyError
	if !errors.As(err, &perr) {
		perr = &ProxyError{Kind: InternalError, Service: p.orders.Upstream().Name, Err: err}
	}

	switch perr.Kind {
	case UpstreamBusinessError:
		relay(w, perr.StatusCode, perr.ContentType, perr.Body)
	case UpstreamUnavailable:
		upstream := p.orders.Upstream()
		p.logger.WarnContext(r.Context(), "upstream unavailable",
			slog.String("route", route),
			slog.String("service", upstream.Name),
			slog.String("error", perr.Err.Error()),
		)
		httpx.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   fmt.Sprintf("%s unavailable", upstream.DisplayName),
			"message": fmt.Sprintf("could not connect to %s", upstream.Name),
			"service": upstream.Name,
		})
	case InternalError:
		p.logger.ErrorContext(r.Context(), "failed to forward request",
			slog.String("route", route),
			slog.String("service", perr.Service),
			slog.String("error", err.Error()),
		)
		httpx.RespondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "internal server error",
			"message": "the request could not be forwarded",
		})
	default:
		panic(fmt.Sprintf("gateway: unhandled proxy error kind %s", perr.Kind))
	}
}

// relay writes an upstream answer back verbatim.
func relay(w http.ResponseWriter, status int, contentType string, body []byte) {
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
