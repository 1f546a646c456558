package repository

import (
	"context"

	"compliancedesk-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryRepository handles database operations for categories
type CategoryRepository struct {
	db *pgxpool.Pool
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category. A name already used by the owner yields ErrDuplicate.
func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (user_id, name, description, keywords)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, c.UserID, c.Name, c.Description, c.Keywords).
		Scan(&c.ID, &c.CreatedAt)
	return translate(err)
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c := &models.Category{}
	query := `
		SELECT id, user_id, name, description, keywords, created_at
		FROM categories
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Description,
		&c.Keywords,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	return c, nil
}

// ListByUserID retrieves a user's categories in creation order, which is also classification priority
func (r *CategoryRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Category, error) {
	query := `
		SELECT id, user_id, name, description, keywords, created_at
		FROM categories
		WHERE user_id = $1
		ORDER BY created_at ASC, name ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Keywords, &c.CreatedAt); err != nil {
			return nil, err
		}
		if c.Keywords == nil {
			c.Keywords = []string{}
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// Update updates a category's name, description and keywords
func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	query := `
		UPDATE categories SET
			name = $2,
			description = $3,
			keywords = $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, c.ID, c.Name, c.Description, c.Keywords)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a category
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
