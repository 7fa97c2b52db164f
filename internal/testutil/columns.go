package testutil

// ProductCols must match the column order of productColumns in the store.
var ProductCols = []string{
	"id", "name", "description", "price", "category", "image_url", "created_at",
}
