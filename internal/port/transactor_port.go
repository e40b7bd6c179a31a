package port

import "context"

// Repositories are bound to a single unit of work.
type Repositories struct {
	Orders  OrderRepository
	Catalog CatalogRepository
}

type Transactor interface {
	// WithinTx runs fn in one unit of work. Everything fn wrote through repos
	// is committed if fn returns nil and discarded otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
