package service

import (
	"context"
	"strings"
	"testing"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/fixture"
	"github.com/fjod/go_shop/internal/logger"
	"github.com/fjod/go_shop/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *CatalogService {
	t.Helper()
	return NewCatalogService(memory.NewProductStore(), logger.Discard())
}

func validInput() CreateProductInput {
	price := decimal.RequireFromString("19.999")
	stock := 0
	return CreateProductInput{
		Name:        "Notebook",
		Description: "A5 dotted notebook",
		Price:       &price,
		Image:       "https://example.com/notebook.png",
		Category:    "Office",
		Stock:       &stock,
	}
}

func validationMessages(t *testing.T, err error) []string {
	t.Helper()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Messages
}

func TestCreate_Success(t *testing.T) {
	svc := newCatalog(t)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "20.00", p.Price.StringFixed(2), "prices are stored with cents")
	assert.Equal(t, domain.CategoryOffice, p.Category)
	assert.Equal(t, 0, p.Stock)
}

func TestCreate_MissingFields(t *testing.T) {
	svc := newCatalog(t)

	_, err := svc.Create(context.Background(), CreateProductInput{})
	msgs := validationMessages(t, err)
	assert.ElementsMatch(t, []string{
		"Product name is required",
		"Product description is required",
		"Product price is required",
		"Product image URL is required",
		"Product category is required",
		"Stock quantity is required",
	}, msgs)
}

func TestCreate_FieldConstraints(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	in := validInput()
	in.Name = strings.Repeat("n", 101)
	in.Category = "Toys"
	stock := -1
	in.Stock = &stock
	_, err := svc.Create(ctx, in)
	assert.ElementsMatch(t, []string{
		"Product name cannot exceed 100 characters",
		"Category must be one of Electronics, Accessories, Office, Clothing, Home, Books, Sports, Other",
		"Stock cannot be negative",
	}, validationMessages(t, err))

	in = validInput()
	negative := decimal.RequireFromString("-1")
	in.Price = &negative
	_, err = svc.Create(ctx, in)
	assert.Equal(t, []string{"Price must be a positive number"}, validationMessages(t, err))
}

func TestStockAmounts(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.IncreaseStock(ctx, p.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.DecreaseStock(ctx, p.ID, -2)
	assert.ErrorIs(t, err, domain.ErrValidation)

	up, err := svc.IncreaseStock(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, up.Stock)

	_, err = svc.DecreaseStock(ctx, p.ID, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	down, err := svc.DecreaseStock(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, down.Stock)
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	n, err := svc.Seed(ctx, fixture.Products())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = svc.Seed(ctx, fixture.Products())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	all, err := svc.Search(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestByCategory_IgnoresCase(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()
	_, err := svc.Seed(ctx, fixture.Products())
	require.NoError(t, err)

	office, err := svc.ByCategory(ctx, "office")
	require.NoError(t, err)
	assert.Len(t, office, 2)

	unknown, err := svc.ByCategory(ctx, "Toys")
	require.NoError(t, err)
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)
}

func TestSearch_RejectsNegativeLimit(t *testing.T) {
	_, err := newCatalog(t).Search(context.Background(), domain.ProductFilter{Limit: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
