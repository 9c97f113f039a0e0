package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medication is a catalog entry. The catalog itself is managed externally;
// this service only reads medications and decrements their stock.
type Medication struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Laboratory     string          `json:"laboratory"`
	ManufacturedAt time.Time       `json:"manufactured_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	Stock          int64           `json:"stock"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Active         bool            `json:"active"`
}

// Quotation answers "what would this sale cost and is it currently possible".
// It is computed on demand and never persisted; the sellable flag is advisory
// and can be stale the instant it is returned.
type Quotation struct {
	MedicationID   string          `json:"medication_id"`
	MedicationName string          `json:"medication_name"`
	Quantity       int64           `json:"quantity"`
	Stock          int64           `json:"stock"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	Sellable       bool            `json:"sellable"`
}

// SaleLine is owned by exactly one Sale. Name and unit price are denormalized
// at sale time so historical sales stay stable against future price changes.
type SaleLine struct {
	MedicationID   string          `json:"medication_id"`
	MedicationName string          `json:"medication_name"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineValue      decimal.Decimal `json:"line_value"`
}

// Sale is the persisted record of one completed stock-decreasing transaction.
// Total always equals the sum of its line values.
type Sale struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Total     decimal.Decimal `json:"total"`
	Lines     []SaleLine      `json:"lines"`
}

type SaleCreateRequest struct {
	MedicationID string `json:"medication_id"`
	Quantity     int64  `json:"quantity"`
}

type StockAdjustRequest struct {
	Quantity int64 `json:"quantity"`
}

type StockAdjustResponse struct {
	MedicationID string `json:"medication_id"`
	Stock        int64  `json:"stock"`
}

const (
	SortAscending  = "asc"
	SortDescending = "desc"
)

// SaleQuery describes a paginated sales listing. From/To are optional
// calendar dates; when set, the range covers both days fully.
type SaleQuery struct {
	From *time.Time
	To   *time.Time
	Page int
	Size int
	Sort string
}

// Page mirrors the shape reporting tools expect: content plus counts and
// first/last markers. Pagination is zero-indexed.
type Page struct {
	Content       []Sale `json:"content"`
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	TotalElements int64  `json:"total_elements"`
	TotalPages    int    `json:"total_pages"`
	First         bool   `json:"first"`
	Last          bool   `json:"last"`
}
