package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var medicineSelect = []string{"id", "owner", "name", "name_key", "quantity", "notes", "exp_date"}

// PostgresOptions connection pool settings
type PostgresOptions struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type postgresMedicineRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMedicineRepository PostgreSQL backed medicine repository.
// Pending migrations are applied before it is returned.
func NewPostgresMedicineRepository(ctx context.Context, opts PostgresOptions) (repository.MedicineRepository, error) {
	poolCfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolCfg.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = opts.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &postgresMedicineRepository{pool: pool}, nil
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Insert stores a new medicine
func (r *postgresMedicineRepository) Insert(ctx context.Context, med *entity.Medicine) error {
	id := uuid.New()
	query, args, err := psql.Insert("medicines").
		Columns(medicineSelect...).
		Values(id, med.Owner, med.Name, med.NameKey, med.Quantity, med.Notes, med.ExpDate).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return mapPgError(err, "insert "+med.Name)
	}
	med.ID = id.String()
	return nil
}

// UpdateFields partial update
func (r *postgresMedicineRepository) UpdateFields(ctx context.Context, id string, owner int64, upd entity.MedicineUpdate) (bool, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return false, fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	query, args, err := psql.Select(medicineSelect...).From("medicines").
		Where(sq.Eq{"id": uid, "owner": owner}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return false, err
	}
	med, err := scanPgMedicine(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return false, mapPgError(err, "medicine "+id)
	}
	if !upd.Apply(med) {
		return false, nil
	}

	query, args, err = psql.Update("medicines").
		Set("name", med.Name).
		Set("name_key", med.NameKey).
		Set("quantity", med.Quantity).
		Set("notes", med.Notes).
		Set("exp_date", med.ExpDate).
		Where(sq.Eq{"id": uid, "owner": owner}).
		ToSql()
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return false, mapPgError(err, "update "+id)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a medicine
func (r *postgresMedicineRepository) Delete(ctx context.Context, id string, owner int64) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}

	query, args, err := psql.Delete("medicines").Where(sq.Eq{"id": uid, "owner": owner}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError(err, "delete "+id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// FindByID medicine by ID
func (r *postgresMedicineRepository) FindByID(ctx context.Context, id string, owner int64) (*entity.Medicine, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}
	return r.findOne(ctx, sq.Eq{"id": uid, "owner": owner}, "medicine "+id)
}

// FindByNameKey medicine by name key
func (r *postgresMedicineRepository) FindByNameKey(ctx context.Context, nameKey string, owner int64) (*entity.Medicine, error) {
	return r.findOne(ctx, sq.Eq{"name_key": nameKey, "owner": owner}, "medicine "+nameKey)
}

// ListByOwner all medicines of owner
func (r *postgresMedicineRepository) ListByOwner(ctx context.Context, owner int64) ([]entity.Medicine, error) {
	return r.list(ctx, psql.Select(medicineSelect...).From("medicines").
		Where(sq.Eq{"owner": owner}).
		OrderBy("name_key"))
}

// Search substring search over name keys
func (r *postgresMedicineRepository) Search(ctx context.Context, owner int64, needles []string, offset, limit int) ([]entity.Medicine, error) {
	var anyOf sq.Or
	for _, n := range needles {
		if n == "" {
			continue
		}
		anyOf = append(anyOf, sq.Expr("strpos(name_key, ?) > 0", n))
	}
	if len(anyOf) == 0 {
		return nil, nil
	}

	b := psql.Select(medicineSelect...).From("medicines").
		Where(sq.Eq{"owner": owner}).
		Where(anyOf).
		OrderBy("name_key")
	if limit > 0 {
		b = b.Limit(uint64(limit)).Offset(uint64(offset))
	}
	return r.list(ctx, b)
}

// DistinctOwners owners with at least one medicine
func (r *postgresMedicineRepository) DistinctOwners(ctx context.Context) ([]int64, error) {
	query, args, err := psql.Select("DISTINCT owner").From("medicines").OrderBy("owner").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "distinct owners")
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, mapPgError(err, "distinct owners")
	}
	return owners, nil
}

// FindExpiringBetween medicines expiring in [from, to]
func (r *postgresMedicineRepository) FindExpiringBetween(ctx context.Context, owner int64, from, to string) ([]entity.Medicine, error) {
	return r.list(ctx, psql.Select(medicineSelect...).From("medicines").
		Where(sq.Eq{"owner": owner}).
		Where(sq.GtOrEq{"exp_date": from}).
		Where(sq.LtOrEq{"exp_date": to}).
		OrderBy("exp_date", "name_key"))
}

// FindExpiredBefore medicines expired before date
func (r *postgresMedicineRepository) FindExpiredBefore(ctx context.Context, owner int64, date string) ([]entity.Medicine, error) {
	return r.list(ctx, psql.Select(medicineSelect...).From("medicines").
		Where(sq.Eq{"owner": owner}).
		Where(sq.Lt{"exp_date": date}).
		OrderBy("exp_date", "name_key"))
}

// Close closes the pool
func (r *postgresMedicineRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *postgresMedicineRepository) findOne(ctx context.Context, where sq.Eq, what string) (*entity.Medicine, error) {
	query, args, err := psql.Select(medicineSelect...).From("medicines").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	med, err := scanPgMedicine(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapPgError(err, what)
	}
	return med, nil
}

func (r *postgresMedicineRepository) list(ctx context.Context, b sq.SelectBuilder) ([]entity.Medicine, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "list medicines")
	}
	defer rows.Close()

	var meds []entity.Medicine
	for rows.Next() {
		med, err := scanPgMedicine(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, *med)
	}
	return meds, rows.Err()
}

func scanPgMedicine(row pgx.Row) (*entity.Medicine, error) {
	var (
		med entity.Medicine
		id  uuid.UUID
	)
	if err := row.Scan(&id, &med.Owner, &med.Name, &med.NameKey, &med.Quantity, &med.Notes, &med.ExpDate); err != nil {
		return nil, err
	}
	med.ID = id.String()
	return &med, nil
}

// mapPgError converts pgx/pgconn errors to repository errors.
// Context errors pass through.
func mapPgError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", what, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%s: %w", what, repository.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}
