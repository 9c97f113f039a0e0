package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"farmapos/backend/internal/domain"
	"farmapos/backend/internal/quote"
	"farmapos/backend/internal/store"
)

const defaultPageSize = 20

type Service struct {
	repo   store.Repository
	quoter *quote.Engine
}

func New(repo store.Repository, quoter *quote.Engine) *Service {
	return &Service{
		repo:   repo,
		quoter: quoter,
	}
}

func (s *Service) GetMedication(ctx context.Context, id string) (domain.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Medication{}, store.ErrValidation
	}

	med, err := s.repo.GetMedication(ctx, id)
	if err != nil {
		return domain.Medication{}, err
	}
	return *med, nil
}

// Quote answers a read-only "cotizar" request. It takes no locks and reserves
// nothing; the sellable flag can be stale by the time a sale is attempted.
// Inactive medications quote fine, they just come back unsellable.
func (s *Service) Quote(ctx context.Context, medicationID string, quantity int64) (domain.Quotation, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" || quantity < 0 {
		return domain.Quotation{}, store.ErrValidation
	}

	med, err := s.repo.GetMedication(ctx, medicationID)
	if err != nil {
		return domain.Quotation{}, err
	}

	return s.quoter.Quote(ctx, *med, quantity), nil
}

// CreateSale records a sale of a single medication. The stock decrement and
// the sale insert run as one unit of work inside the repository: a failed
// insert rolls the decrement back, and concurrent sales can never drive the
// stock negative. Failed calls leave no side effects and may be retried.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	req.MedicationID = strings.TrimSpace(req.MedicationID)
	if req.Quantity < 1 || req.MedicationID == "" {
		return domain.Sale{}, store.ErrValidation
	}

	med, err := s.repo.GetMedication(ctx, req.MedicationID)
	if err != nil {
		return domain.Sale{}, err
	}
	if !med.Active {
		// Not available for sale; indistinguishable from absent on this path.
		return domain.Sale{}, store.ErrNotFound
	}

	// Unit price is captured here and never re-read; later price changes do
	// not touch recorded sales.
	line := domain.SaleLine{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Quantity:       req.Quantity,
		UnitPrice:      med.UnitPrice,
		LineValue:      med.UnitPrice.Mul(decimal.NewFromInt(req.Quantity)),
	}

	sale := domain.Sale{
		Timestamp: time.Now().UTC(),
		Total:     line.LineValue,
		Lines:     []domain.SaleLine{line},
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	log.Printf("[service] sale recorded id=%s medication=%s qty=%d total=%s", created.ID, med.ID, req.Quantity, created.Total.String())

	return *created, nil
}

// AdjustStock decrements stock directly without recording a sale. Unlike the
// sale path, an inactive medication is reported as its own failure here.
func (s *Service) AdjustStock(ctx context.Context, medicationID string, quantity int64) (domain.StockAdjustResponse, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" || quantity < 1 {
		return domain.StockAdjustResponse{}, store.ErrValidation
	}

	med, err := s.repo.DecrementStock(ctx, medicationID, quantity)
	if err != nil {
		return domain.StockAdjustResponse{}, err
	}

	log.Printf("[service] stock adjusted medication=%s qty=%d remaining=%d", med.ID, quantity, med.Stock)

	return domain.StockAdjustResponse{
		MedicationID: med.ID,
		Stock:        med.Stock,
	}, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, store.ErrValidation
	}

	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// ListSales serves both the unfiltered and the date-range listing. When a
// range is present, both calendar days are fully included: [from 00:00,
// (to+1d) 00:00) in UTC.
func (s *Service) ListSales(ctx context.Context, query domain.SaleQuery) (domain.Page, error) {
	if query.Page < 0 || query.Size < 0 {
		return domain.Page{}, store.ErrValidation
	}
	if query.Size == 0 {
		query.Size = defaultPageSize
	}

	ascending := false
	switch strings.ToLower(strings.TrimSpace(query.Sort)) {
	case "", domain.SortDescending:
	case domain.SortAscending:
		ascending = true
	default:
		return domain.Page{}, store.ErrValidation
	}

	if (query.From == nil) != (query.To == nil) {
		return domain.Page{}, store.ErrValidation
	}

	var from, to time.Time
	if query.From != nil {
		fromDay := startOfDayUTC(*query.From)
		toDay := startOfDayUTC(*query.To)
		if toDay.Before(fromDay) {
			return domain.Page{}, store.ErrValidation
		}
		from = fromDay
		to = toDay.AddDate(0, 0, 1)
	}

	return s.repo.ListSales(ctx, from, to, query.Page, query.Size, ascending)
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
