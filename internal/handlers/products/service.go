package products

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/errors"
	"marketplace/internal/events"
	"marketplace/internal/storage"
	"marketplace/internal/store"
)

type ProductsService interface {
	List(ctx context.Context, opts store.ListOptions) ([]ProductResponse, error)
	Get(ctx context.Context, id int64) (ProductResponse, error)
	Create(ctx context.Context, req *ProductRequest) (ProductResponse, error)
	Update(ctx context.Context, id int64, req *ProductRequest) (ProductResponse, error)
	Delete(ctx context.Context, id int64) (ProductResponse, error)
}

type svc struct {
	store        *store.ProductStore
	logger       *slog.Logger
	eventHandler *events.EventHandler
	storage      storage.Provider
	imagesBucket storage.Bucket
	publicURL    string
}

func NewProductsService(st *store.ProductStore, logger *slog.Logger, eventHandler *events.EventHandler, provider storage.Provider, imagesBucket storage.Bucket, publicURL string) ProductsService {
	return &svc{
		store:        st,
		logger:       logger,
		eventHandler: eventHandler,
		storage:      provider,
		imagesBucket: imagesBucket,
		publicURL:    publicURL,
	}
}

func (s *svc) List(ctx context.Context, opts store.ListOptions) ([]ProductResponse, error) {
	rows, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Unable to load products. Please try again later.", err)
	}

	response := make([]ProductResponse, len(rows))
	for i, row := range rows {
		response[i] = toResponse(row)
	}
	return response, nil
}

func (s *svc) Get(ctx context.Context, id int64) (ProductResponse, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return ProductResponse{}, mapStoreError(err)
	}
	return toResponse(p), nil
}

func (s *svc) Create(ctx context.Context, req *ProductRequest) (ProductResponse, error) {
	s.logger.InfoContext(ctx, "Creating product", "name", req.Name, "category", req.Category)

	if err := req.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Validation failed", "error", err)
		return ProductResponse{}, err
	}

	p, err := s.store.Insert(ctx, req.fields())
	if err != nil {
		return ProductResponse{}, errors.New(errors.ErrInternal, "Failed to create product. Please try again later.", err)
	}

	s.raiseEvent(ctx, events.ActionCreated, p)
	return toResponse(p), nil
}

func (s *svc) Update(ctx context.Context, id int64, req *ProductRequest) (ProductResponse, error) {
	s.logger.InfoContext(ctx, "Updating product", "id", id)

	// Update validates the same rules as create; a replacement row must be as
	// complete as a new one.
	if err := req.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Validation failed", "error", err)
		return ProductResponse{}, err
	}

	p, err := s.store.Update(ctx, id, req.fields())
	if err != nil {
		return ProductResponse{}, mapStoreError(err)
	}

	s.raiseEvent(ctx, events.ActionUpdated, p)
	return toResponse(p), nil
}

func (s *svc) Delete(ctx context.Context, id int64) (ProductResponse, error) {
	s.logger.InfoContext(ctx, "Deleting product", "id", id)

	p, err := s.store.Delete(ctx, id)
	if err != nil {
		return ProductResponse{}, mapStoreError(err)
	}

	s.raiseEvent(ctx, events.ActionDeleted, p)
	s.cleanupImage(p)

	return toResponse(p), nil
}

// mapStoreError keeps DB detail out of responses: no rows is a 404,
// everything else is an opaque 500.
func mapStoreError(err error) *errors.AppError {
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.New(errors.ErrNotFound, "Product not found", err)
	}
	return errors.New(errors.ErrInternal, "Store unavailable. Please try again later.", err)
}

// raiseEvent publishes a lifecycle event. The mutation already committed, so
// a publish failure is logged and never fails the request.
func (s *svc) raiseEvent(ctx context.Context, action events.Action, p store.Product) {
	if s.eventHandler == nil {
		return
	}

	traceID := ""
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID = sc.TraceID().String()
	}

	evt := events.ProductEvent{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		At:        time.Now().UTC(),
		TraceID:   traceID,
	}

	if err := s.eventHandler.RaiseProductEvent(action, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish product event",
			"action", action, "product_id", p.ID, "error", err)
	}
}

// cleanupImage removes the backing object of a deleted product when the image
// lives in our bucket. External URLs are left alone. Best effort; the row is
// already gone.
func (s *svc) cleanupImage(p store.Product) {
	if s.storage == nil || p.ImageURL == nil {
		return
	}

	prefix := strings.TrimRight(s.publicURL, "/") + "/"
	if !strings.HasPrefix(*p.ImageURL, prefix) {
		return
	}
	key := strings.TrimPrefix(*p.ImageURL, prefix)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.storage.Delete(ctx, s.imagesBucket, key); err != nil {
			s.logger.Warn("Failed to delete product image", "key", key, "error", err)
		}
	}()
}
