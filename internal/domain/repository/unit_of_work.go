package repository

import "context"

// UnitOfWork runs fn inside one storage transaction. Repository calls made
// with the ctx passed to fn join that transaction; the work is committed when
// fn returns nil and rolled back otherwise.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
