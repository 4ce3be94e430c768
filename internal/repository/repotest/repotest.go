// Package repotest is a conformance suite every repository backend runs from its own tests.
package repotest

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) *repository.Store

func RunAll(t *testing.T, newStore Factory) {
	t.Run("Products", func(t *testing.T) { RunProductTests(t, newStore) })
	t.Run("Carts", func(t *testing.T) { RunCartTests(t, newStore) })
	t.Run("Users", func(t *testing.T) { RunUserTests(t, newStore) })
}

func NewProduct(name, price string, stock int, category domain.Category) *domain.Product {
	return &domain.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Image:       "https://example.com/" + name + ".png",
		Category:    category,
		Stock:       stock,
	}
}

func createProduct(t *testing.T, repo repository.ProductRepository, p *domain.Product) *domain.Product {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), p))
	require.NotEmpty(t, p.ID)
	return p
}

func RunProductTests(t *testing.T, newStore Factory) {
	t.Run("CreateAndFind", func(t *testing.T) {
		repo := newStore(t).Products
		ctx := context.Background()

		p := createProduct(t, repo, NewProduct("Wireless Mouse", "34.99", 75, domain.CategoryElectronics))
		assert.False(t, p.CreatedAt.IsZero())

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
		assert.Equal(t, "Wireless Mouse", found.Name)
		assert.Equal(t, "34.99", found.Price.StringFixed(2))
		assert.Equal(t, domain.CategoryElectronics, found.Category)
		assert.Equal(t, 75, found.Stock)
	})

	t.Run("FindByID_NotFound", func(t *testing.T) {
		repo := newStore(t).Products
		ctx := context.Background()

		_, err := repo.FindByID(ctx, "65a000000000000000000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = repo.FindByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Count", func(t *testing.T) {
		repo := newStore(t).Products
		ctx := context.Background()

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		createProduct(t, repo, NewProduct("A", "1.00", 1, domain.CategoryOther))
		createProduct(t, repo, NewProduct("B", "2.00", 1, domain.CategoryOther))

		n, err = repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("Search", func(t *testing.T) {
		repo := newStore(t).Products
		ctx := context.Background()

		headphones := createProduct(t, repo, NewProduct("Wireless Headphones", "99.99", 50, domain.CategoryElectronics))
		time.Sleep(2 * time.Millisecond)
		cable := createProduct(t, repo, NewProduct("USB-C Cable", "14.99", 200, domain.CategoryAccessories))
		time.Sleep(2 * time.Millisecond)
		stand := createProduct(t, repo, NewProduct("Laptop Stand", "49.99", 30, domain.CategoryOffice))
		time.Sleep(2 * time.Millisecond)
		mouse := createProduct(t, repo, NewProduct("Wireless Mouse", "34.99", 75, domain.CategoryElectronics))

		all, err := repo.Search(ctx, domain.ProductFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{mouse.ID, stand.ID, cable.ID, headphones.ID}, ids(all), "default sort is newest first")

		byCategory, err := repo.Search(ctx, domain.ProductFilter{Category: domain.CategoryElectronics, Sort: domain.SortPriceLow})
		require.NoError(t, err)
		assert.Equal(t, []string{mouse.ID, headphones.ID}, ids(byCategory))

		bySearch, err := repo.Search(ctx, domain.ProductFilter{Search: "WIRELESS", Sort: domain.SortName})
		require.NoError(t, err)
		assert.Equal(t, []string{headphones.ID, mouse.ID}, ids(bySearch))

		byDescription, err := repo.Search(ctx, domain.ProductFilter{Search: "stand desc"})
		require.NoError(t, err)
		assert.Equal(t, []string{stand.ID}, ids(byDescription))

		priceHigh, err := repo.Search(ctx, domain.ProductFilter{Sort: domain.SortPriceHigh, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{headphones.ID, stand.ID}, ids(priceHigh))

		literal, err := repo.Search(ctx, domain.ProductFilter{Search: "100%"})
		require.NoError(t, err)
		assert.Empty(t, literal)

		none, err := repo.Search(ctx, domain.ProductFilter{Category: domain.CategoryBooks})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("DecreaseStock", func(t *testing.T) {
		repo := newStore(t).Products
		ctx := context.Background()
		p := createProduct(t, repo, NewProduct("Desk Organizer", "39.99", 5, domain.CategoryOffice))

		updated, err := repo.DecreaseStock(ctx, p.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Stock)

		_, err = repo.DecreaseStock(ctx, p.ID, 3)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, found.Stock, "failed decrease must not change stock")

		updated, err = repo.DecreaseStock(ctx, p.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, updated.Stock)

		_, err = repo.DecreaseStock(ctx, "65a000000000000000000000", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("IncreaseStock", func(t *testing.T) {
		repo := newStore(t).Products
		ctx := context.Background()
		p := createProduct(t, repo, NewProduct("Smartphone Case", "24.99", 0, domain.CategoryAccessories))

		updated, err := repo.IncreaseStock(ctx, p.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, updated.Stock)

		_, err = repo.IncreaseStock(ctx, "not-an-id", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ConcurrentDecreaseNeverGoesNegative", func(t *testing.T) {
		repo := newStore(t).Products
		ctx := context.Background()
		p := createProduct(t, repo, NewProduct("Laptop Stand", "49.99", 10, domain.CategoryOffice))

		var succeeded atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.DecreaseStock(ctx, p.ID, 1); err == nil {
					succeeded.Add(1)
				} else {
					assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				}
			}()
		}
		wg.Wait()

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(10), succeeded.Load())
		assert.Equal(t, 0, found.Stock)
	})
}

func ids(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func lineItem(sessionID, productID string, quantity int) domain.LineItem {
	return domain.LineItem{
		SessionID: sessionID,
		ProductID: productID,
		Name:      "Wireless Headphones",
		Price:     decimal.RequireFromString("99.99"),
		Image:     "headphones.png",
		Quantity:  quantity,
	}
}

// productRef creates a real product so backends with foreign keys accept the line items.
func productRef(t *testing.T, store *repository.Store, name string, stock int) string {
	t.Helper()
	return createProduct(t, store.Products, NewProduct(name, "99.99", stock, domain.CategoryElectronics)).ID
}

func RunCartTests(t *testing.T, newStore Factory) {
	t.Run("IncrementItem_Creates", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		pid := productRef(t, store, "Headphones", 50)

		item, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 1), 50)
		require.NoError(t, err)
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, "s1", item.SessionID)
		assert.Equal(t, pid, item.ProductID)
		assert.Equal(t, 1, item.Quantity)
		assert.Equal(t, "Wireless Headphones", item.Name)
		assert.Equal(t, "99.99", item.Price.StringFixed(2))
		assert.Equal(t, "headphones.png", item.Image)
	})

	t.Run("IncrementItem_AddsToExisting", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		pid := productRef(t, store, "Headphones", 50)

		first, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 1), 50)
		require.NoError(t, err)
		second, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 2), 50)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 3, second.Quantity)

		items, err := store.Carts.ListItems(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("IncrementItem_RespectsMaxQuantity", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		pid := productRef(t, store, "Headphones", 3)

		_, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 4), 3)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		items, err := store.Carts.ListItems(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, items)

		_, err = store.Carts.IncrementItem(ctx, lineItem("s1", pid, 2), 3)
		require.NoError(t, err)
		_, err = store.Carts.IncrementItem(ctx, lineItem("s1", pid, 2), 3)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		items, err = store.Carts.ListItems(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 2, items[0].Quantity)
	})

	t.Run("IncrementItem_RejectsHugeQuantity", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		pid := productRef(t, store, "Headphones", 3)

		_, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 1), 3)
		require.NoError(t, err)
		_, err = store.Carts.IncrementItem(ctx, lineItem("s1", pid, math.MaxInt), 3)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		items, err := store.Carts.ListItems(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 1, items[0].Quantity)
	})

	t.Run("ListItems_OrderedAndPartitioned", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		p1 := productRef(t, store, "First", 10)
		p2 := productRef(t, store, "Second", 10)
		p3 := productRef(t, store, "Third", 10)

		a, err := store.Carts.IncrementItem(ctx, lineItem("s1", p1, 1), 10)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		b, err := store.Carts.IncrementItem(ctx, lineItem("s1", p2, 1), 10)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		c, err := store.Carts.IncrementItem(ctx, lineItem("s1", p3, 1), 10)
		require.NoError(t, err)
		_, err = store.Carts.IncrementItem(ctx, lineItem("s2", p1, 5), 10)
		require.NoError(t, err)

		items, err := store.Carts.ListItems(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{items[0].ID, items[1].ID, items[2].ID})

		other, err := store.Carts.ListItems(ctx, "s2")
		require.NoError(t, err)
		require.Len(t, other, 1)
		assert.Equal(t, 5, other[0].Quantity)

		empty, err := store.Carts.ListItems(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("ListItems_RapidAddsKeepInsertionOrder", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		var want []string
		for _, name := range []string{"One", "Two", "Three", "Four", "Five"} {
			pid := productRef(t, store, name, 10)
			item, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 1), 10)
			require.NoError(t, err)
			want = append(want, item.ID)
		}

		items, err := store.Carts.ListItems(ctx, "s1")
		require.NoError(t, err)
		got := make([]string, 0, len(items))
		for _, item := range items {
			got = append(got, item.ID)
		}
		assert.Equal(t, want, got)
	})

	t.Run("GetItem_OwnedBySession", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		pid := productRef(t, store, "Headphones", 10)

		item, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 1), 10)
		require.NoError(t, err)

		found, err := store.Carts.GetItem(ctx, "s1", item.ID)
		require.NoError(t, err)
		assert.Equal(t, item.ID, found.ID)

		_, err = store.Carts.GetItem(ctx, "s2", item.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = store.Carts.GetItem(ctx, "s1", "not-an-id")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SetQuantity", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		pid := productRef(t, store, "Headphones", 10)

		item, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 1), 10)
		require.NoError(t, err)

		updated, err := store.Carts.SetQuantity(ctx, "s1", item.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, 7, updated.Quantity)
		assert.Equal(t, "99.99", updated.Price.StringFixed(2))

		_, err = store.Carts.SetQuantity(ctx, "s2", item.ID, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		found, err := store.Carts.GetItem(ctx, "s1", item.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, found.Quantity)
	})

	t.Run("RemoveItem", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		pid := productRef(t, store, "Headphones", 10)

		item, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 1), 10)
		require.NoError(t, err)

		err = store.Carts.RemoveItem(ctx, "s2", item.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, store.Carts.RemoveItem(ctx, "s1", item.ID))

		err = store.Carts.RemoveItem(ctx, "s1", item.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		again, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 2), 10)
		require.NoError(t, err)
		assert.Equal(t, 2, again.Quantity, "removed item must not keep its old quantity")
	})

	t.Run("ClearSession", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		p1 := productRef(t, store, "First", 10)
		p2 := productRef(t, store, "Second", 10)

		_, err := store.Carts.IncrementItem(ctx, lineItem("s1", p1, 1), 10)
		require.NoError(t, err)
		_, err = store.Carts.IncrementItem(ctx, lineItem("s1", p2, 1), 10)
		require.NoError(t, err)
		_, err = store.Carts.IncrementItem(ctx, lineItem("s2", p1, 1), 10)
		require.NoError(t, err)

		removed, err := store.Carts.ClearSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		items, err := store.Carts.ListItems(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, items)

		other, err := store.Carts.ListItems(ctx, "s2")
		require.NoError(t, err)
		assert.Len(t, other, 1)

		removed, err = store.Carts.ClearSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), removed)
	})

	t.Run("ConcurrentIncrementsAreNotLost", func(t *testing.T) {
		store := newStore(t)
		pid := productRef(t, store, "Headphones", 1000)

		const n = 40
		g, ctx := errgroup.WithContext(context.Background())
		for i := 0; i < n; i++ {
			g.Go(func() error {
				_, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 1), 1000)
				return err
			})
		}
		require.NoError(t, g.Wait())

		items, err := store.Carts.ListItems(context.Background(), "s1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, n, items[0].Quantity)
	})

	t.Run("ConcurrentIncrementsStopAtMax", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		pid := productRef(t, store, "Headphones", 15)

		var succeeded atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Carts.IncrementItem(ctx, lineItem("s1", pid, 1), 15)
				if err == nil {
					succeeded.Add(1)
					return
				}
				if !errors.Is(err, domain.ErrInsufficientStock) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		items, err := store.Carts.ListItems(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 15, items[0].Quantity)
		assert.Equal(t, int32(15), succeeded.Load())
	})
}

func RunUserTests(t *testing.T, newStore Factory) {
	t.Run("CreateAndFind", func(t *testing.T) {
		repo := newStore(t).Users
		ctx := context.Background()

		u := &domain.User{Name: "John Doe", Email: "John@Example.com", PasswordHash: "hash", Role: domain.RoleUser, IsVerified: true}
		require.NoError(t, repo.Create(ctx, u))
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "john@example.com", u.Email)

		byEmail, err := repo.FindByEmail(ctx, "JOHN@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.Equal(t, "hash", byEmail.PasswordHash)
		assert.Equal(t, domain.RoleUser, byEmail.Role)

		byID, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "John Doe", byID.Name)
		assert.True(t, byID.IsVerified)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := newStore(t).Users
		ctx := context.Background()

		require.NoError(t, repo.Create(ctx, &domain.User{Name: "A", Email: "a@example.com", PasswordHash: "h", Role: domain.RoleUser}))
		err := repo.Create(ctx, &domain.User{Name: "B", Email: "A@example.com", PasswordHash: "h", Role: domain.RoleUser})
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := newStore(t).Users
		ctx := context.Background()

		_, err := repo.FindByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = repo.FindByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
