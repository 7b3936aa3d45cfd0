package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/apiserver/types"
)

const statusColumns = `id, status_name, type_id, description, is_active, created_at, updated_at`

// StatusRepository handles persistence for statuses.
type StatusRepository struct {
	db *sql.DB
}

func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// List returns statuses newest first.
func (r *StatusRepository) List(ctx context.Context) ([]types.Status, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+statusColumns+` FROM statuses ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make([]types.Status, 0)
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *StatusRepository) Get(ctx context.Context, id string) (types.Status, error) {
	return scanStatus(r.db.QueryRowContext(ctx, `SELECT `+statusColumns+` FROM statuses WHERE id = $1`, id))
}

func (r *StatusRepository) GetByName(ctx context.Context, typeID int, name string) (types.Status, error) {
	const query = `SELECT ` + statusColumns + ` FROM statuses WHERE type_id = $1 AND status_name = $2`
	return scanStatus(r.db.QueryRowContext(ctx, query, typeID, name))
}

func (r *StatusRepository) Create(ctx context.Context, status types.Status) (types.Status, error) {
	if status.ID == "" {
		status.ID = uuid.NewString()
	}
	now := time.Now()
	status.CreatedAt = now
	status.UpdatedAt = now

	const query = `
		INSERT INTO statuses (id, status_name, type_id, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		status.ID,
		status.StatusName,
		status.TypeID,
		status.Description,
		status.IsActive,
		status.CreatedAt,
		status.UpdatedAt,
	); err != nil {
		return types.Status{}, translateError(err)
	}
	return status, nil
}

func (r *StatusRepository) Update(ctx context.Context, status types.Status) (types.Status, error) {
	status.UpdatedAt = time.Now()

	const query = `
		UPDATE statuses
		SET status_name = $1,
			type_id = $2,
			description = $3,
			is_active = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		status.StatusName,
		status.TypeID,
		status.Description,
		status.IsActive,
		status.UpdatedAt,
		status.ID,
	)
	if err != nil {
		return types.Status{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Status{}, err
	}
	if affected == 0 {
		return types.Status{}, ErrNotFound
	}
	return status, nil
}

func (r *StatusRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM statuses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanStatus(row rowScanner) (types.Status, error) {
	var status types.Status
	err := row.Scan(
		&status.ID,
		&status.StatusName,
		&status.TypeID,
		&status.Description,
		&status.IsActive,
		&status.CreatedAt,
		&status.UpdatedAt,
	)
	if err != nil {
		return types.Status{}, translateError(err)
	}
	return status, nil
}
