package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"farmapos/backend/internal/domain"
	"farmapos/backend/internal/store"
)

// Store is an in-memory repository used for dev mode and tests. A single
// RWMutex guards all state; every stock check-and-write runs under the write
// lock, which makes decrements serializable the same way the postgres store's
// conditional update does.
type Store struct {
	mu          sync.RWMutex
	medications map[string]domain.Medication
	salesByID   map[string]domain.Sale
	sales       []string
}

func New() *Store {
	return &Store{
		medications: make(map[string]domain.Medication),
		salesByID:   make(map[string]domain.Sale),
		sales:       make([]string, 0, 64),
	}
}

func NewSeeded() *Store {
	s := New()
	manufactured := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2027, time.January, 10, 0, 0, 0, 0, time.UTC)

	for _, m := range []domain.Medication{
		{ID: "med-acetaminofen-500", Name: "Acetaminofén 500mg", Laboratory: "Genfar", Stock: 120, UnitPrice: decimal.NewFromInt(2000)},
		{ID: "med-ibuprofeno-400", Name: "Ibuprofeno 400mg", Laboratory: "MK", Stock: 80, UnitPrice: decimal.NewFromInt(3500)},
		{ID: "med-amoxicilina-500", Name: "Amoxicilina 500mg", Laboratory: "La Santé", Stock: 45, UnitPrice: decimal.NewFromInt(8200)},
		{ID: "med-loratadina-10", Name: "Loratadina 10mg", Laboratory: "Genfar", Stock: 200, UnitPrice: decimal.NewFromInt(1500)},
		{ID: "med-omeprazol-20", Name: "Omeprazol 20mg", Laboratory: "Tecnoquímicas", Stock: 60, UnitPrice: decimal.NewFromInt(4800)},
		{ID: "med-salbutamol-inh", Name: "Salbutamol Inhalador", Laboratory: "GSK", Stock: 25, UnitPrice: decimal.NewFromInt(21500)},
		{ID: "med-diclofenaco-desc", Name: "Diclofenaco 75mg (descontinuado)", Laboratory: "MK", Stock: 10, UnitPrice: decimal.NewFromInt(2900)},
	} {
		m.ManufacturedAt = manufactured
		m.ExpiresAt = expires
		m.Active = m.ID != "med-diclofenaco-desc"
		s.medications[m.ID] = m
	}

	return s
}

func (s *Store) GetMedication(_ context.Context, id string) (*domain.Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	med, exists := s.medications[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := med
	return &copied, nil
}

func (s *Store) DecrementStock(_ context.Context, id string, quantity int64) (*domain.Medication, error) {
	if quantity < 1 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	med, err := s.decrementLocked(id, quantity)
	if err != nil {
		return nil, err
	}
	copied := *med
	return &copied, nil
}

// decrementLocked performs the conditional decrement. Callers must hold the
// write lock.
func (s *Store) decrementLocked(id string, quantity int64) (*domain.Medication, error) {
	med, exists := s.medications[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !med.Active {
		return nil, store.ErrMedicationInactive
	}
	if med.Stock < quantity {
		return nil, store.ErrInsufficientStock
	}

	med.Stock -= quantity
	s.medications[id] = med
	return &med, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Lines) == 0 {
		return nil, store.ErrValidation
	}
	for _, line := range sale.Lines {
		if line.MedicationID == "" || line.Quantity < 1 {
			return nil, store.ErrValidation
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check every line before mutating anything so a failure leaves no
	// partial decrement behind.
	for _, line := range sale.Lines {
		med, exists := s.medications[line.MedicationID]
		if !exists || !med.Active {
			return nil, store.ErrNotFound
		}
		if med.Stock < line.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}
	for _, line := range sale.Lines {
		if _, err := s.decrementLocked(line.MedicationID, line.Quantity); err != nil {
			return nil, err
		}
	}

	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = time.Now().UTC()
	}

	s.salesByID[sale.ID] = sale
	s.sales = append(s.sales, sale.ID)

	created := sale
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := sale
	return &copied, nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, page int, size int, ascending bool) (domain.Page, error) {
	if page < 0 || size < 1 {
		return domain.Page{}, store.ErrValidation
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Sale, 0, len(s.sales))
	for _, id := range s.sales {
		sale := s.salesByID[id]
		if !from.IsZero() && sale.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.Timestamp.Before(to) {
			continue
		}
		matched = append(matched, sale)
	}

	slices.SortFunc(matched, func(a, b domain.Sale) int {
		if a.Timestamp.Equal(b.Timestamp) {
			return cmpString(a.ID, b.ID)
		}
		if a.Timestamp.Before(b.Timestamp) {
			if ascending {
				return -1
			}
			return 1
		}
		if ascending {
			return 1
		}
		return -1
	})

	total := int64(len(matched))
	totalPages := int((total + int64(size) - 1) / int64(size))

	start := page * size
	end := start + size
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	content := make([]domain.Sale, end-start)
	copy(content, matched[start:end])

	return domain.Page{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
	}, nil
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
