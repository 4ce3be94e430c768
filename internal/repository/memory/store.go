// Package memory holds the in-memory fixture backend. State lives for the
// lifetime of the process.
package memory

import "github.com/fjod/go_shop/internal/repository"

const StoreName = "memory"

func NewStore() *repository.Store {
	return repository.NewStore(StoreName, NewProductStore(), NewCartStore(), NewUserStore(), nil)
}
