package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/priyaranjankumar/linkly/internal/domain"
)

const mappingColumns = `id, short_code, original_url, status, visit_count, created_at`

type MappingRepository struct {
	db *sqlx.DB
}

func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Create inserts the row, derives the code from the generated id and stores
// it before committing, so a code-less row is never visible to other sessions.
func (r *MappingRepository) Create(ctx context.Context, originalURL string, code domain.CodeFunc) (_ *domain.Mapping, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, r.handlePostgreSQLError(err, "begin create")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("Failed to roll back create", "error", rbErr)
			}
		}
	}()

	id, err := r.insertPending(ctx, tx, originalURL)
	if err != nil {
		return nil, err
	}

	shortCode, err := code(id)
	if err != nil {
		return nil, fmt.Errorf("derive short code for id %d: %w", id, err)
	}

	mapping, err := r.assignCode(ctx, tx, id, shortCode)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, r.handlePostgreSQLError(err, "commit create")
	}

	slog.Debug("Mapping created", "short_code", mapping.ShortCode, "id", mapping.ID)
	return mapping, nil
}

func (r *MappingRepository) insertPending(ctx context.Context, tx *sqlx.Tx, originalURL string) (int64, error) {
	var id int64
	query := `INSERT INTO url_mappings (original_url) VALUES ($1) RETURNING id`

	if err := tx.QueryRowxContext(ctx, query, originalURL).Scan(&id); err != nil {
		return 0, r.handlePostgreSQLError(err, "insert pending mapping")
	}
	return id, nil
}

func (r *MappingRepository) assignCode(ctx context.Context, tx *sqlx.Tx, id int64, shortCode string) (*domain.Mapping, error) {
	var mapping domain.Mapping
	query := `UPDATE url_mappings SET short_code = $1 WHERE id = $2 RETURNING ` + mappingColumns

	if err := tx.GetContext(ctx, &mapping, query, shortCode, id); err != nil {
		return nil, r.handlePostgreSQLError(err, "assign short code")
	}
	return &mapping, nil
}

func (r *MappingRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	var mapping domain.Mapping
	query := `SELECT ` + mappingColumns + ` FROM url_mappings WHERE short_code = $1`

	if err := r.db.GetContext(ctx, &mapping, query, shortCode); err != nil {
		return nil, r.handlePostgreSQLError(err, "find by short code")
	}
	return &mapping, nil
}

func (r *MappingRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*domain.Mapping, error) {
	var mapping domain.Mapping
	query := `SELECT ` + mappingColumns + ` FROM url_mappings
		WHERE original_url = $1 AND short_code IS NOT NULL
		ORDER BY id DESC LIMIT 1`

	if err := r.db.GetContext(ctx, &mapping, query, originalURL); err != nil {
		return nil, r.handlePostgreSQLError(err, "find by original url")
	}
	return &mapping, nil
}

func (r *MappingRepository) List(ctx context.Context, offset, limit int) ([]*domain.Mapping, error) {
	mappings := []*domain.Mapping{}
	query := `SELECT ` + mappingColumns + ` FROM url_mappings
		WHERE short_code IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	if err := r.db.SelectContext(ctx, &mappings, query, limit, offset); err != nil {
		return nil, r.handlePostgreSQLError(err, "list mappings")
	}
	return mappings, nil
}

func (r *MappingRepository) SetStatus(ctx context.Context, shortCode string, status domain.Status) (*domain.Mapping, error) {
	var mapping domain.Mapping
	query := `UPDATE url_mappings SET status = $1 WHERE short_code = $2 RETURNING ` + mappingColumns

	if err := r.db.GetContext(ctx, &mapping, query, string(status), shortCode); err != nil {
		return nil, r.handlePostgreSQLError(err, "set status")
	}

	slog.Debug("Status updated", "short_code", shortCode, "status", mapping.Status)
	return &mapping, nil
}

func (r *MappingRepository) IncrementVisits(ctx context.Context, shortCode string) error {
	query := `UPDATE url_mappings SET visit_count = visit_count + 1 WHERE short_code = $1`

	result, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return r.handlePostgreSQLError(err, "increment visits")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return r.handlePostgreSQLError(err, "increment visits")
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MappingRepository) Delete(ctx context.Context, shortCode string) (bool, error) {
	query := `DELETE FROM url_mappings WHERE short_code = $1`

	result, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return false, r.handlePostgreSQLError(err, "delete mapping")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, r.handlePostgreSQLError(err, "delete mapping")
	}
	return rowsAffected > 0, nil
}

// handlePostgreSQLError converts PostgreSQL-specific errors to domain errors
func (r *MappingRepository) handlePostgreSQLError(err error, operation string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		slog.Error("PostgreSQL error",
			"operation", operation,
			"code", pqErr.Code,
			"message", pqErr.Message,
			"detail", pqErr.Detail,
		)

		switch pqErr.Code {
		case "23505": // unique_violation
			return domain.NewStoreError(operation, fmt.Errorf("unique constraint %s violated: %s", pqErr.Constraint, pqErr.Detail))
		case "23502": // not_null_violation
			return domain.NewStoreError(operation, fmt.Errorf("required field missing: %s", pqErr.Column))
		case "23514": // check_violation
			return domain.NewStoreError(operation, fmt.Errorf("check constraint violation: %s", pqErr.Detail))
		case "08000", "08003", "08006": // connection errors
			return domain.NewStoreError(operation, fmt.Errorf("database connection error: %s", pqErr.Message))
		default:
			return domain.NewStoreError(operation, fmt.Errorf("database error [%s]: %s", pqErr.Code, pqErr.Message))
		}
	}

	return domain.NewStoreError(operation, err)
}

func (r *MappingRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *MappingRepository) HealthCheck(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection is nil")
	}
	return r.db.PingContext(ctx)
}

var _ domain.MappingRepository = (*MappingRepository)(nil)
