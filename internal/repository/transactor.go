package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/schoolshop/internal/port"
)

type transactor struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) port.Transactor {
	return &transactor{pool: pool}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	_, err := withTx(ctx, t.pool, func(tx pgx.Tx) (struct{}, error) {
		repos := port.Repositories{
			Orders:  NewOrderWithTx(tx),
			Catalog: NewCatalogWithTx(tx),
		}
		return struct{}{}, fn(ctx, repos)
	})
	return err
}
