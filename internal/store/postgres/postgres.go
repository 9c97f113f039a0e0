package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"farmapos/backend/internal/domain"
	"farmapos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS medications (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			laboratory      TEXT NOT NULL DEFAULT '',
			manufactured_at DATE NOT NULL,
			expires_at      DATE NOT NULL,
			stock           BIGINT NOT NULL CHECK (stock >= 0),
			unit_price      NUMERIC(14,2) NOT NULL CHECK (unit_price > 0),
			active          BOOLEAN NOT NULL DEFAULT true,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id         TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			total      NUMERIC(14,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sale_lines (
			sale_id         TEXT NOT NULL REFERENCES sales(id),
			position        INT NOT NULL,
			medication_id   TEXT NOT NULL,
			medication_name TEXT NOT NULL,
			quantity        BIGINT NOT NULL CHECK (quantity > 0),
			unit_price      NUMERIC(14,2) NOT NULL,
			line_value      NUMERIC(14,2) NOT NULL,
			PRIMARY KEY (sale_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales (created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetMedication(ctx context.Context, id string) (*domain.Medication, error) {
	var med domain.Medication
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, laboratory, manufactured_at, expires_at, stock, unit_price, active
		FROM medications
		WHERE id = $1
	`, id).Scan(&med.ID, &med.Name, &med.Laboratory, &med.ManufacturedAt, &med.ExpiresAt, &med.Stock, &med.UnitPrice, &med.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	med.ManufacturedAt = med.ManufacturedAt.UTC()
	med.ExpiresAt = med.ExpiresAt.UTC()
	return &med, nil
}

// DecrementStock runs the sufficiency check and the write as a single
// conditional UPDATE, so concurrent decrements against the same row
// serialize on the row lock and can never drive stock negative.
func (s *Store) DecrementStock(ctx context.Context, id string, quantity int64) (*domain.Medication, error) {
	if quantity < 1 {
		return nil, store.ErrValidation
	}

	var med domain.Medication
	err := s.db.QueryRowContext(ctx, `
		UPDATE medications
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND active AND stock >= $2
		RETURNING id, name, laboratory, manufactured_at, expires_at, stock, unit_price, active
	`, id, quantity).Scan(&med.ID, &med.Name, &med.Laboratory, &med.ManufacturedAt, &med.ExpiresAt, &med.Stock, &med.UnitPrice, &med.Active)
	if err == nil {
		med.ManufacturedAt = med.ManufacturedAt.UTC()
		med.ExpiresAt = med.ExpiresAt.UTC()
		return &med, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return nil, s.classifyDecrementFailure(ctx, s.db, id)
}

// classifyDecrementFailure distinguishes why a conditional decrement matched
// no row: the medication is missing, inactive, or short on stock.
func (s *Store) classifyDecrementFailure(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id string) error {
	var active bool
	err := q.QueryRowContext(ctx, `SELECT active FROM medications WHERE id = $1`, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !active {
		return store.ErrMedicationInactive
	}
	return store.ErrInsufficientStock
}

// CreateSale couples the stock decrement and the sale insert in one database
// transaction: either both commit or neither does.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Lines) == 0 {
		return nil, store.ErrValidation
	}
	for _, line := range sale.Lines {
		if line.MedicationID == "" || line.Quantity < 1 {
			return nil, store.ErrValidation
		}
	}

	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, line := range sale.Lines {
		res, err := tx.ExecContext(ctx, `
			UPDATE medications
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND active AND stock >= $2
		`, line.MedicationID, line.Quantity)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			err := s.classifyDecrementFailure(ctx, tx, line.MedicationID)
			if errors.Is(err, store.ErrMedicationInactive) {
				// In sale context an inactive medication is simply not
				// available for sale.
				return nil, store.ErrNotFound
			}
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, created_at, total)
		VALUES ($1, $2, $3)
	`, sale.ID, sale.Timestamp, sale.Total)
	if err != nil {
		return nil, err
	}

	for i, line := range sale.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, position, medication_id, medication_name, quantity, unit_price, line_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, sale.ID, i, line.MedicationID, line.MedicationName, line.Quantity, line.UnitPrice, line.LineValue)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, total
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.Timestamp, &sale.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.Timestamp = sale.Timestamp.UTC()

	lines, err := s.loadLines(ctx, []string{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Lines = lines[sale.ID]

	return &sale, nil
}

func (s *Store) loadLines(ctx context.Context, saleIDs []string) (map[string][]domain.SaleLine, error) {
	result := make(map[string][]domain.SaleLine, len(saleIDs))
	if len(saleIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, medication_id, medication_name, quantity, unit_price, line_value
		FROM sale_lines
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var saleID string
		var line domain.SaleLine
		if err := rows.Scan(&saleID, &line.MedicationID, &line.MedicationName, &line.Quantity, &line.UnitPrice, &line.LineValue); err != nil {
			return nil, err
		}
		result[saleID] = append(result[saleID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, page int, size int, ascending bool) (domain.Page, error) {
	if page < 0 || size < 1 {
		return domain.Page{}, store.ErrValidation
	}

	where := `WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		AND ($2::timestamptz IS NULL OR created_at < $2)`

	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM sales `+where, nullTime(from), nullTime(to)).Scan(&total)
	if err != nil {
		return domain.Page{}, err
	}

	order := `ORDER BY created_at DESC, id DESC`
	if ascending {
		order = `ORDER BY created_at ASC, id ASC`
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, total
		FROM sales `+where+` `+order+`
		LIMIT $3 OFFSET $4
	`, nullTime(from), nullTime(to), size, page*size)
	if err != nil {
		return domain.Page{}, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, size)
	saleIDs := make([]string, 0, size)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.Timestamp, &sale.Total); err != nil {
			return domain.Page{}, err
		}
		sale.Timestamp = sale.Timestamp.UTC()
		sales = append(sales, sale)
		saleIDs = append(saleIDs, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return domain.Page{}, err
	}

	lines, err := s.loadLines(ctx, saleIDs)
	if err != nil {
		return domain.Page{}, err
	}
	for i := range sales {
		sales[i].Lines = lines[sales[i].ID]
	}

	totalPages := int((total + int64(size) - 1) / int64(size))

	return domain.Page{
		Content:       sales,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
	}, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
