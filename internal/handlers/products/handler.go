package products

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"marketplace/internal/errors"
	"marketplace/internal/json"
	"marketplace/internal/store"
)

type ProductsHandler struct {
	service ProductsService
}

func NewProductsHandler(svc ProductsService) *ProductsHandler {
	return &ProductsHandler{service: svc}
}

// parseListOptions reads category/sort/limit from the query string.
// Unknown sort values fall back to newest inside the store; a malformed limit
// is a client error rather than a silently unbounded query.
func parseListOptions(r *http.Request) (store.ListOptions, *errors.AppError) {
	opts := store.ListOptions{
		Category: r.URL.Query().Get("category"),
		Sort:     r.URL.Query().Get("sort"),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return store.ListOptions{}, errors.New(errors.ErrInvalidInput, "limit must be a positive integer", err)
		}
		opts.Limit = limit
	}

	return opts, nil
}

func productID(r *http.Request) (int64, *errors.AppError) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New(errors.ErrInvalidInput, "Product ID must be an integer", err)
	}
	return id, nil
}

func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts, appErr := parseListOptions(r)
	if appErr != nil {
		errors.RespondError(w, r, appErr)
		return
	}

	list, err := h.service.List(ctx, opts)
	if err != nil {
		slog.WarnContext(ctx, "Failed to list products", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, list)
}

func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, appErr := productID(r)
	if appErr != nil {
		errors.RespondError(w, r, appErr)
		return
	}

	product, err := h.service.Get(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch product", "id", id, "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, product)
}

func (h *ProductsHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := ProductRequest{}
	if err := json.Read(r, &req); err != nil {
		slog.WarnContext(ctx, "Invalid request body", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrInvalidInput, "Request body was not valid JSON", err))
		return
	}

	product, err := h.service.Create(ctx, &req)
	if err != nil {
		slog.WarnContext(ctx, "Failed to create product", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusCreated, product)
}

func (h *ProductsHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, appErr := productID(r)
	if appErr != nil {
		errors.RespondError(w, r, appErr)
		return
	}

	req := ProductRequest{}
	if err := json.Read(r, &req); err != nil {
		slog.WarnContext(ctx, "Invalid request body", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrInvalidInput, "Request body was not valid JSON", err))
		return
	}

	product, err := h.service.Update(ctx, id, &req)
	if err != nil {
		slog.WarnContext(ctx, "Failed to update product", "id", id, "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, product)
}

func (h *ProductsHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, appErr := productID(r)
	if appErr != nil {
		errors.RespondError(w, r, appErr)
		return
	}

	deleted, err := h.service.Delete(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "Failed to delete product", "id", id, "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, DeleteProductResponse{
		Success:        true,
		DeletedProduct: deleted,
	})
}
