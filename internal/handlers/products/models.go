package products

import (
	"math"
	"strings"
	"time"

	"marketplace/internal/errors"
	"marketplace/internal/store"
)

// ProductRequest is the full field set for create and update. Update replaces
// every mutable field, so both operations share one request shape.
// Price is a pointer so a missing field is distinguishable from a free item.
type ProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
	Image       *string  `json:"image"`
}

// Validate enforces the presence rules: name, description and category
// non-empty, price present, finite and non-negative. The error message
// enumerates every offending field so the frontend can show one notice.
func (req *ProductRequest) Validate() *errors.AppError {
	var missing []string

	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.Description) == "" {
		missing = append(missing, "description")
	}
	if req.Price == nil || math.IsNaN(*req.Price) || math.IsInf(*req.Price, 0) {
		missing = append(missing, "price")
	}
	if strings.TrimSpace(req.Category) == "" {
		missing = append(missing, "category")
	}

	if len(missing) > 0 {
		return errors.New(errors.ErrInvalidInput,
			"Missing or invalid required fields: "+strings.Join(missing, ", "), nil)
	}

	if *req.Price < 0 {
		return errors.New(errors.ErrInvalidInput, "Price cannot be negative", nil)
	}

	return nil
}

// fields converts the request into store columns, normalizing price to the
// table's 2-decimal precision.
func (req *ProductRequest) fields() store.ProductFields {
	return store.ProductFields{
		Name:        req.Name,
		Description: req.Description,
		Price:       math.Round(*req.Price*100) / 100,
		Category:    req.Category,
		ImageURL:    req.Image,
	}
}

// ProductResponse is the wire shape; image_url travels as "image" to match
// the frontend.
type ProductResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Image       *string   `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

type DeleteProductResponse struct {
	Success        bool            `json:"success"`
	DeletedProduct ProductResponse `json:"deletedProduct"`
}

func toResponse(p store.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Image:       p.ImageURL,
		CreatedAt:   p.CreatedAt,
	}
}
