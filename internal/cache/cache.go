package cache

import (
	"context"
	"time"

	"farmapos/backend/internal/domain"
)

// QuoteCache holds recently computed quotations. Quotes are advisory, so a
// short-lived cached answer is acceptable on the read path.
type QuoteCache interface {
	Get(ctx context.Context, key string) (*domain.Quotation, bool, error)
	Set(ctx context.Context, key string, value *domain.Quotation, ttl time.Duration) error
}

type NoopQuoteCache struct{}

func (NoopQuoteCache) Get(context.Context, string) (*domain.Quotation, bool, error) {
	return nil, false, nil
}

func (NoopQuoteCache) Set(context.Context, string, *domain.Quotation, time.Duration) error {
	return nil
}
