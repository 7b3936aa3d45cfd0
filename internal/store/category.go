package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/apiserver/types"
)

const categorySelect = `
		SELECT c.id, c.category_name, c.description, c.parent_category_id, p.category_name,
			c.is_active, c.created_at, c.updated_at
		FROM categories c
		LEFT JOIN categories p ON p.id = c.parent_category_id`

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List(ctx context.Context) ([]types.Category, error) {
	rows, err := r.db.QueryContext(ctx, categorySelect+` ORDER BY c.category_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]types.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (types.Category, error) {
	return scanCategory(r.db.QueryRowContext(ctx, categorySelect+` WHERE c.id = $1`, id))
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (types.Category, error) {
	return scanCategory(r.db.QueryRowContext(ctx, categorySelect+` WHERE c.category_name = $1`, name))
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now

	const query = `
		INSERT INTO categories (id, category_name, description, parent_category_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.CategoryName,
		category.Description,
		nullString(category.ParentCategoryID),
		category.IsActive,
		category.CreatedAt,
		category.UpdatedAt,
	); err != nil {
		return types.Category{}, translateError(err)
	}
	return category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	category.UpdatedAt = time.Now()

	const query = `
		UPDATE categories
		SET category_name = $1,
			description = $2,
			parent_category_id = $3,
			is_active = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		category.CategoryName,
		category.Description,
		nullString(category.ParentCategoryID),
		category.IsActive,
		category.UpdatedAt,
		category.ID,
	)
	if err != nil {
		return types.Category{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Category{}, err
	}
	if affected == 0 {
		return types.Category{}, ErrNotFound
	}
	return category, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
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

func scanCategory(row rowScanner) (types.Category, error) {
	var (
		category   types.Category
		parentID   sql.NullString
		parentName sql.NullString
	)
	err := row.Scan(
		&category.ID,
		&category.CategoryName,
		&category.Description,
		&parentID,
		&parentName,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return types.Category{}, translateError(err)
	}
	category.ParentCategoryID = parentID.String
	category.ParentCategoryName = parentName.String
	return category, nil
}
