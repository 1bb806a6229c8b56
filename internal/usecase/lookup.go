package usecase

import (
	"context"

	"biblegen/internal/domain"
	"biblegen/internal/port"
)

// LookupUseCase answers per-reference questions from the stored snapshot.
type LookupUseCase struct {
	store port.BuildStore
}

func NewLookupUseCase(st port.BuildStore) *LookupUseCase {
	return &LookupUseCase{store: st}
}

// Lookup returns every version's entry for one canonical reference. A
// malformed reference yields a *domain.ReferenceError, an unknown one a
// *domain.NotFoundError.
func (u *LookupUseCase) Lookup(ctx context.Context, ref string) (*domain.RefLookup, error) {
	cref, err := domain.ParseCanonicalRef(ref)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := u.store.GetMapping(cref.String())
	if err != nil {
		return nil, err
	}
	return &domain.RefLookup{Canonical: cref.String(), Entries: entries}, nil
}
