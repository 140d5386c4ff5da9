package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

const medicineColumns = `id, owner, name, name_key, quantity, notes, exp_date`

type sqliteMedicineRepository struct {
	db *sql.DB
}

// NewSQLiteMedicineRepository SQLite backed medicine repository
func NewSQLiteMedicineRepository(dbPath string) (repository.MedicineRepository, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite path must not be empty")
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// sqlite3 serializes writers; one connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := createMedicineSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteMedicineRepository{db: db}, nil
}

func createMedicineSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS medicines (
	id TEXT PRIMARY KEY,
	owner INTEGER NOT NULL,
	name TEXT NOT NULL,
	name_key TEXT NOT NULL,
	quantity TEXT NOT NULL,
	notes TEXT NOT NULL,
	exp_date TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_medicines_owner_name_key ON medicines (owner, name_key);
CREATE INDEX IF NOT EXISTS idx_medicines_owner ON medicines (owner);
CREATE INDEX IF NOT EXISTS idx_medicines_exp_date ON medicines (exp_date);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Insert stores a new medicine
func (s *sqliteMedicineRepository) Insert(ctx context.Context, med *entity.Medicine) error {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `INSERT INTO medicines (`+medicineColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, med.Owner, med.Name, med.NameKey, med.Quantity, med.Notes, med.ExpDate)
	if err != nil {
		return mapSQLiteError(err, "insert "+med.Name)
	}
	med.ID = id
	return nil
}

// FindByID medicine by ID
func (s *sqliteMedicineRepository) FindByID(ctx context.Context, id string, owner int64) (*entity.Medicine, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = ? AND owner = ?`, id, owner)
	med, err := scanMedicine(row)
	if err != nil {
		return nil, mapSQLiteError(err, "medicine "+id)
	}
	return med, nil
}

// FindByNameKey medicine by name key
func (s *sqliteMedicineRepository) FindByNameKey(ctx context.Context, nameKey string, owner int64) (*entity.Medicine, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE name_key = ? AND owner = ?`, nameKey, owner)
	med, err := scanMedicine(row)
	if err != nil {
		return nil, mapSQLiteError(err, "medicine "+nameKey)
	}
	return med, nil
}

// ListByOwner all medicines of owner
func (s *sqliteMedicineRepository) ListByOwner(ctx context.Context, owner int64) ([]entity.Medicine, error) {
	return s.query(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE owner = ? ORDER BY name_key`, owner)
}

// Search substring search over name keys
func (s *sqliteMedicineRepository) Search(ctx context.Context, owner int64, needles []string, offset, limit int) ([]entity.Medicine, error) {
	var conds []string
	args := []any{owner}
	for _, n := range needles {
		if n == "" {
			continue
		}
		conds = append(conds, "instr(name_key, ?) > 0")
		args = append(args, n)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE owner = ? AND (` + strings.Join(conds, " OR ") + `) ORDER BY name_key`
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	return s.query(ctx, query, args...)
}

// UpdateFields partial update
func (s *sqliteMedicineRepository) UpdateFields(ctx context.Context, id string, owner int64, upd entity.MedicineUpdate) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = ? AND owner = ?`, id, owner)
	med, err := scanMedicine(row)
	if err != nil {
		return false, mapSQLiteError(err, "medicine "+id)
	}
	if !upd.Apply(med) {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `UPDATE medicines SET name = ?, name_key = ?, quantity = ?, notes = ?, exp_date = ? WHERE id = ? AND owner = ?`,
		med.Name, med.NameKey, med.Quantity, med.Notes, med.ExpDate, id, owner)
	if err != nil {
		return false, mapSQLiteError(err, "update "+id)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a medicine
func (s *sqliteMedicineRepository) Delete(ctx context.Context, id string, owner int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// DistinctOwners owners with at least one medicine
func (s *sqliteMedicineRepository) DistinctOwners(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT owner FROM medicines ORDER BY owner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var owner int64
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// FindExpiringBetween medicines expiring in [from, to]
func (s *sqliteMedicineRepository) FindExpiringBetween(ctx context.Context, owner int64, from, to string) ([]entity.Medicine, error) {
	return s.query(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE owner = ? AND exp_date >= ? AND exp_date <= ? ORDER BY exp_date, name_key`, owner, from, to)
}

// FindExpiredBefore medicines expired before date
func (s *sqliteMedicineRepository) FindExpiredBefore(ctx context.Context, owner int64, date string) ([]entity.Medicine, error) {
	return s.query(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE owner = ? AND exp_date < ? ORDER BY exp_date, name_key`, owner, date)
}

// Close closes the database
func (s *sqliteMedicineRepository) Close() error {
	return s.db.Close()
}

func (s *sqliteMedicineRepository) query(ctx context.Context, query string, args ...any) ([]entity.Medicine, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meds []entity.Medicine
	for rows.Next() {
		med, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, *med)
	}
	return meds, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (*entity.Medicine, error) {
	var med entity.Medicine
	if err := row.Scan(&med.ID, &med.Owner, &med.Name, &med.NameKey, &med.Quantity, &med.Notes, &med.ExpDate); err != nil {
		return nil, err
	}
	return &med, nil
}

// mapSQLiteError converts driver errors to repository errors.
func mapSQLiteError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w", what, repository.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}
