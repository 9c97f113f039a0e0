package store

import (
	"context"
	"errors"
	"time"

	"farmapos/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrMedicationInactive = errors.New("medication inactive")
	ErrValidation         = errors.New("invalid request")
)

// Repository is the persistence contract shared by the in-memory and
// postgres stores.
//
// DecrementStock and CreateSale are the only stock-mutating operations, and
// both are atomic: the sufficiency check and the write happen as one
// indivisible step relative to concurrent callers, so two overlapping
// decrements can never drive stock negative. CreateSale additionally couples
// the decrement with the sale insert in a single unit of work; if either part
// fails, neither is visible.
type Repository interface {
	GetMedication(ctx context.Context, id string) (*domain.Medication, error)
	DecrementStock(ctx context.Context, id string, quantity int64) (*domain.Medication, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, page int, size int, ascending bool) (domain.Page, error)
}
