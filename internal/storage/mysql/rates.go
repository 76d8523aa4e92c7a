package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dubaihaus/internal/domain"
)

// GetRate returns the stored pair, or nil when it was never fetched. Freshness is the caller's call.
func (r *Repo) GetRate(ctx context.Context, base, target string) (*domain.ExchangeRate, error) {
	var x domain.ExchangeRate
	err := r.db.QueryRowContext(ctx, getRateSQL, strings.ToUpper(base), strings.ToUpper(target)).
		Scan(&x.Base, &x.Target, &x.Rate, &x.Provider, &x.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate %s/%s: %w", base, target, err)
	}
	x.FetchedAt = x.FetchedAt.UTC()
	return &x, nil
}

func (r *Repo) UpsertRate(ctx context.Context, x domain.ExchangeRate) error {
	base, target := strings.ToUpper(x.Base), strings.ToUpper(x.Target)
	if base == target {
		return fmt.Errorf("upsert rate: same-currency pair %s", base)
	}
	_, err := r.db.ExecContext(ctx, upsertRateSQL, base, target, x.Rate, x.Provider, x.FetchedAt.UTC())
	return err
}
