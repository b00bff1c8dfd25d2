package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/orderflow/internal/httpx"
	"github.com/dejobratic/orderflow/internal/orders/app"
	"github.com/dejobratic/orderflow/internal/orders/app/queries"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// Handler exposes HTTP endpoints for order operations.
type Handler struct {
	service  *app.Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(service *app.Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		validate: httpx.NewValidator(),
	}
}

// Register binds the order routes. {id} never spans a slash, so
// /orders/{id}/status never reaches the by-id handler.
func (h *Handler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/{id}/status", h.getOrderStatus)
		r.Patch("/{id}/status", h.updateOrderStatus)
		r.Get("/{id}", h.getOrder)
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := hashBody(raw)
	if idemKey != "" {
		replayed, err := h.replay(ctx, w, idemKey, requestHash)
		if err != nil {
			h.respondServiceError(w, r, "create_order", err)
			return
		}
		if replayed {
			return
		}
	}

	var input app.CreateOrderInput
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&input); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, httpx.ValidationMessage(err))
		return
	}

	order, err := h.service.CreateOrder(ctx, input)
	if err != nil {
		h.respondServiceError(w, r, "create_order", err)
		return
	}

	body, err := json.Marshal(order)
	if err != nil {
		h.respondServiceError(w, r, "create_order", err)
		return
	}

	if idemKey != "" {
		stored := ports.StoredResponse{
			RequestHash: requestHash,
			StatusCode:  http.StatusCreated,
			Body:        body,
			OrderID:     order.ID,
		}
		// The order exists either way; a lost key only disables replay.
		if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
			h.logger.ErrorContext(ctx, "failed to store idempotent response",
				slog.String("op", "create_order"),
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) replay(ctx context.Context, w http.ResponseWriter, key, requestHash string) (bool, error) {
	stored, err := h.service.GetIdempotentResponse(ctx, key)
	if err != nil || stored == nil {
		return false, err
	}
	if stored.RequestHash != requestHash {
		return false, ports.ErrIdempotencyKeyReused
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.StatusCode)
	_, _ = w.Write(stored.Body)
	return true, nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, "get_order", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, order)
}

func (h *Handler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetOrderStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, "get_order_status", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, view)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, httpx.ValidationMessage(err))
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondServiceError(w, r, "update_order_status", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var query queries.ListOrdersQuery

	params := r.URL.Query()
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httpx.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		query.Limit = limit
	}
	if raw := params.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			httpx.RespondError(w, http.StatusBadRequest, "skip must be a non-negative integer")
			return
		}
		query.Skip = skip
	}

	result, err := h.service.ListOrders(r.Context(), query)
	if err != nil {
		h.respondServiceError(w, r, "list_orders", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, result)
}

// respondServiceError maps use case errors onto HTTP statuses. Anything
// unexpected is logged and hidden behind a generic 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, queries.ErrInvalidQuery):
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ports.ErrNotFound):
		httpx.RespondError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ports.ErrIdempotencyKeyReused):
		httpx.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("op", op),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		httpx.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
