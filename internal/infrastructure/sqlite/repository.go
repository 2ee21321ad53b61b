package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/priyaranjankumar/linkly/internal/domain"
)

const mappingColumns = `id, short_code, original_url, status, visit_count, created_at`

type MappingRepository struct {
	db *sqlx.DB
}

func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

func (r *MappingRepository) Create(ctx context.Context, originalURL string, code domain.CodeFunc) (_ *domain.Mapping, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapError(err, "begin create")
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

	if err = r.assignCode(ctx, tx, id, shortCode); err != nil {
		return nil, err
	}

	var mapping domain.Mapping
	if err = tx.GetContext(ctx, &mapping, `SELECT `+mappingColumns+` FROM url_mappings WHERE id = ?`, id); err != nil {
		return nil, wrapError(err, "reload created mapping")
	}

	if err = tx.Commit(); err != nil {
		return nil, wrapError(err, "commit create")
	}

	return &mapping, nil
}

func (r *MappingRepository) insertPending(ctx context.Context, tx *sqlx.Tx, originalURL string) (int64, error) {
	result, err := tx.ExecContext(ctx, `INSERT INTO url_mappings (original_url) VALUES (?)`, originalURL)
	if err != nil {
		return 0, wrapError(err, "insert pending mapping")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, wrapError(err, "insert pending mapping")
	}
	return id, nil
}

func (r *MappingRepository) assignCode(ctx context.Context, tx *sqlx.Tx, id int64, shortCode string) error {
	result, err := tx.ExecContext(ctx, `UPDATE url_mappings SET short_code = ? WHERE id = ?`, shortCode, id)
	if err != nil {
		return wrapError(err, "assign short code")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapError(err, "assign short code")
	}
	if rowsAffected != 1 {
		return domain.NewStoreError("assign short code", fmt.Errorf("pending row %d vanished", id))
	}
	return nil
}

func (r *MappingRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	var mapping domain.Mapping
	query := `SELECT ` + mappingColumns + ` FROM url_mappings WHERE short_code = ?`

	if err := r.db.GetContext(ctx, &mapping, query, shortCode); err != nil {
		return nil, wrapError(err, "find by short code")
	}
	return &mapping, nil
}

func (r *MappingRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*domain.Mapping, error) {
	var mapping domain.Mapping
	query := `SELECT ` + mappingColumns + ` FROM url_mappings
		WHERE original_url = ? AND short_code IS NOT NULL
		ORDER BY id DESC LIMIT 1`

	if err := r.db.GetContext(ctx, &mapping, query, originalURL); err != nil {
		return nil, wrapError(err, "find by original url")
	}
	return &mapping, nil
}

func (r *MappingRepository) List(ctx context.Context, offset, limit int) ([]*domain.Mapping, error) {
	mappings := []*domain.Mapping{}
	query := `SELECT ` + mappingColumns + ` FROM url_mappings
		WHERE short_code IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	if err := r.db.SelectContext(ctx, &mappings, query, limit, offset); err != nil {
		return nil, wrapError(err, "list mappings")
	}
	return mappings, nil
}

func (r *MappingRepository) SetStatus(ctx context.Context, shortCode string, status domain.Status) (*domain.Mapping, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE url_mappings SET status = ? WHERE short_code = ?`, string(status), shortCode)
	if err != nil {
		return nil, wrapError(err, "set status")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, wrapError(err, "set status")
	}
	if rowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	return r.FindByShortCode(ctx, shortCode)
}

func (r *MappingRepository) IncrementVisits(ctx context.Context, shortCode string) error {
	query := `UPDATE url_mappings SET visit_count = visit_count + 1 WHERE short_code = ?`

	result, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return wrapError(err, "increment visits")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapError(err, "increment visits")
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *MappingRepository) Delete(ctx context.Context, shortCode string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM url_mappings WHERE short_code = ?`, shortCode)
	if err != nil {
		return false, wrapError(err, "delete mapping")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, wrapError(err, "delete mapping")
	}
	return rowsAffected > 0, nil
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

func wrapError(err error, operation string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		slog.Error("SQLite error",
			"operation", operation,
			"code", sqliteErr.Code,
			"extended_code", sqliteErr.ExtendedCode,
			"message", sqliteErr.Error(),
		)
	}

	return domain.NewStoreError(operation, err)
}

var _ domain.MappingRepository = (*MappingRepository)(nil)
