package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/domain"
)

// getOrCreate resolves the row identified by a natural key, creating it if
// absent. find must return a *domain.NotFoundError when the row does not
// exist. If insert loses a race to a concurrent writer and fails on the
// unique constraint, the row is selected again and reported as
// AlreadyExists; the loser's non-key fields are discarded.
//
// Every insert runs as its own autocommitted statement, so a failed insert
// leaves nothing behind to roll back.
func getOrCreate[T any](
	ctx context.Context,
	find func(ctx context.Context) (*T, error),
	insert func(ctx context.Context) (*T, error),
) (domain.Upserted[T], error) {
	existing, err := find(ctx)
	if err == nil {
		return domain.Upserted[T]{Value: existing, Outcome: domain.AlreadyExists}, nil
	}
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		return domain.Upserted[T]{}, err
	}

	created, err := insert(ctx)
	if err == nil {
		return domain.Upserted[T]{Value: created, Outcome: domain.Created}, nil
	}
	if !db.IsUniqueViolation(err) {
		return domain.Upserted[T]{}, err
	}

	existing, err = find(ctx)
	if err != nil {
		return domain.Upserted[T]{}, fmt.Errorf("reselect after unique violation: %w", err)
	}
	return domain.Upserted[T]{Value: existing, Outcome: domain.AlreadyExists}, nil
}
