package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/testutil"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name     string
		opts     ListOptions
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "defaults to newest first",
			opts:     ListOptions{},
			wantSQL:  "SELECT " + productColumns + " FROM products ORDER BY created_at DESC, id DESC",
			wantArgs: nil,
		},
		{
			name:     "unknown sort falls back to newest",
			opts:     ListOptions{Sort: "alphabetical"},
			wantSQL:  "SELECT " + productColumns + " FROM products ORDER BY created_at DESC, id DESC",
			wantArgs: nil,
		},
		{
			name:     "category filter is a bound parameter",
			opts:     ListOptions{Category: "home"},
			wantSQL:  "SELECT " + productColumns + " FROM products WHERE category = $1 ORDER BY created_at DESC, id DESC",
			wantArgs: []any{"home"},
		},
		{
			name:     "price low sorts ascending",
			opts:     ListOptions{Sort: SortPriceLow},
			wantSQL:  "SELECT " + productColumns + " FROM products ORDER BY price ASC, id ASC",
			wantArgs: nil,
		},
		{
			name:     "price high with limit binds the limit",
			opts:     ListOptions{Sort: SortPriceHigh, Limit: 6},
			wantSQL:  "SELECT " + productColumns + " FROM products ORDER BY price DESC, id ASC LIMIT $1",
			wantArgs: []any{6},
		},
		{
			name:     "category and limit number their parameters in order",
			opts:     ListOptions{Category: "electronics", Sort: SortPriceLow, Limit: 3},
			wantSQL:  "SELECT " + productColumns + " FROM products WHERE category = $1 ORDER BY price ASC, id ASC LIMIT $2",
			wantArgs: []any{"electronics", 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildListQuery(tt.opts)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestEnsureSchema(t *testing.T) {
	t.Run("success marks the store ready", func(t *testing.T) {
		mockPool := testutil.NewMockDB(t)
		s := NewProductStore(mockPool, testutil.NewTestLogger())

		mockPool.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS products")).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))

		require.NoError(t, s.EnsureSchema(context.Background()))
		assert.True(t, s.Ready())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("failure leaves the store not ready", func(t *testing.T) {
		mockPool := testutil.NewMockDB(t)
		s := NewProductStore(mockPool, testutil.NewTestLogger())

		mockPool.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS products")).
			WillReturnError(errors.New("permission denied"))

		require.Error(t, s.EnsureSchema(context.Background()))
		assert.False(t, s.Ready())
	})
}

func TestList(t *testing.T) {
	mockPool := testutil.NewMockDB(t)
	s := NewProductStore(mockPool, testutil.NewTestLogger())

	createdAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	imageURL := "http://localhost:9000/product-images/images/2024/06/01/lamp.jpg"

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT "+productColumns+" FROM products WHERE category = $1 ORDER BY price ASC, id ASC LIMIT $2")).
		WithArgs("home", 2).
		WillReturnRows(pgxmock.NewRows(testutil.ProductCols).
			AddRow(int64(1), "Lamp", "Desk lamp", 19.99, "home", &imageURL, createdAt).
			AddRow(int64(2), "Rug", "Wool rug", 45.00, "home", nil, createdAt))

	got, err := s.List(context.Background(), ListOptions{Category: "home", Sort: SortPriceLow, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Lamp", got[0].Name)
	assert.Equal(t, 19.99, got[0].Price)
	require.NotNil(t, got[0].ImageURL)
	assert.Equal(t, imageURL, *got[0].ImageURL)
	assert.Nil(t, got[1].ImageURL)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestList_EmptyResultIsNotAnError(t *testing.T) {
	mockPool := testutil.NewMockDB(t)
	s := NewProductStore(mockPool, testutil.NewTestLogger())

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT "+productColumns+" FROM products ORDER BY created_at DESC, id DESC")).
		WillReturnRows(pgxmock.NewRows(testutil.ProductCols))

	got, err := s.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestGet_NotFound(t *testing.T) {
	mockPool := testutil.NewMockDB(t)
	s := NewProductStore(mockPool, testutil.NewTestLogger())

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT "+productColumns+" FROM products WHERE id = $1")).
		WithArgs(int64(9999)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}

func TestInsert_ReturnsAssignedFields(t *testing.T) {
	mockPool := testutil.NewMockDB(t)
	s := NewProductStore(mockPool, testutil.NewTestLogger())

	createdAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("Lamp", "Desk lamp", 19.99, "home", (*string)(nil)).
		WillReturnRows(pgxmock.NewRows(testutil.ProductCols).
			AddRow(int64(7), "Lamp", "Desk lamp", 19.99, "home", nil, createdAt))

	got, err := s.Insert(context.Background(), ProductFields{
		Name:        "Lamp",
		Description: "Desk lamp",
		Price:       19.99,
		Category:    "home",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, 19.99, got.Price)
	assert.Equal(t, createdAt, got.CreatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	mockPool := testutil.NewMockDB(t)
	s := NewProductStore(mockPool, testutil.NewTestLogger())

	mockPool.ExpectQuery(regexp.QuoteMeta("UPDATE products")).
		WithArgs("Lamp", "Desk lamp", 19.99, "home", (*string)(nil), int64(9999)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Update(context.Background(), 9999, ProductFields{
		Name:        "Lamp",
		Description: "Desk lamp",
		Price:       19.99,
		Category:    "home",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}

func TestDelete_ReturnsPriorState(t *testing.T) {
	mockPool := testutil.NewMockDB(t)
	s := NewProductStore(mockPool, testutil.NewTestLogger())

	createdAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(regexp.QuoteMeta("DELETE FROM products WHERE id = $1 RETURNING")).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(testutil.ProductCols).
			AddRow(int64(3), "Rug", "Wool rug", 45.00, "home", nil, createdAt))

	got, err := s.Delete(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, "Rug", got.Name)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
