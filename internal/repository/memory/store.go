// Package memory is an in-process implementation of the order and catalog
// ports. A unit of work holds the store lock for its whole duration and
// undoes its writes on failure.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/port"
)

type Store struct {
	mu sync.Mutex

	orders       map[uuid.UUID]domain.Order
	orderNumbers map[string]uuid.UUID
	items        map[uuid.UUID]domain.CatalogItem
}

func NewStore() *Store {
	return &Store{
		orders:       make(map[uuid.UUID]domain.Order),
		orderNumbers: make(map[string]uuid.UUID),
		items:        make(map[uuid.UUID]domain.CatalogItem),
	}
}

// Orders returns a repository where every call is its own unit of work.
func (s *Store) Orders() port.OrderRepository {
	return &orderRepository{s: s}
}

// Catalog returns a repository where every call is its own unit of work.
func (s *Store) Catalog() port.CatalogRepository {
	return &catalogRepository{s: s}
}

func (s *Store) Transactor() port.Transactor {
	return s
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := &journal{}
	repos := port.Repositories{
		Orders:  &orderRepository{s: s, tx: j},
		Catalog: &catalogRepository{s: s, tx: j},
	}

	if err := fn(ctx, repos); err != nil {
		j.rollback()
		return err
	}

	return nil
}

// run executes fn under the store lock unless tx is already holding it.
func (s *Store) run(tx *journal, fn func(j *journal) error) error {
	if tx != nil {
		return fn(tx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := &journal{}
	if err := fn(j); err != nil {
		j.rollback()
		return err
	}

	return nil
}

type journal struct {
	undo []func()
}

func (j *journal) record(undo func()) {
	j.undo = append(j.undo, undo)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	return o
}
