package quote

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"farmapos/backend/internal/cache"
	"farmapos/backend/internal/domain"
)

// Compute builds a quotation from a catalog snapshot. It has no side effects
// and no error path: any quantity >= 0 quotes successfully, even when the
// answer is "not sellable". Total is exact decimal multiplication.
func Compute(med domain.Medication, quantity int64) domain.Quotation {
	return domain.Quotation{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Quantity:       quantity,
		Stock:          med.Stock,
		UnitPrice:      med.UnitPrice,
		Total:          med.UnitPrice.Mul(decimal.NewFromInt(quantity)),
		Sellable:       med.Active && quantity <= med.Stock,
	}
}

// Engine answers quotations, keeping recent answers in a short-TTL cache.
// Quotes are advisory and may be stale; callers re-validate stock at the
// point of actual mutation.
type Engine struct {
	cache cache.QuoteCache
	ttl   time.Duration
}

func NewEngine(quoteCache cache.QuoteCache, ttl time.Duration) *Engine {
	if quoteCache == nil {
		quoteCache = cache.NoopQuoteCache{}
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Engine{cache: quoteCache, ttl: ttl}
}

func (e *Engine) Quote(ctx context.Context, med domain.Medication, quantity int64) domain.Quotation {
	key := fmt.Sprintf("quote:%s:%d", med.ID, quantity)

	if cached, hit, err := e.cache.Get(ctx, key); err != nil {
		log.Printf("[quote] cache get failed key=%s: %v", key, err)
	} else if hit {
		return *cached
	}

	quotation := Compute(med, quantity)

	if err := e.cache.Set(ctx, key, &quotation, e.ttl); err != nil {
		log.Printf("[quote] cache set failed key=%s: %v", key, err)
	}

	return quotation
}
