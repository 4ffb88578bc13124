package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// ErrItemNotFound is returned when no item matches the requested id
var ErrItemNotFound = errors.New("item not found")

// ItemRepository defines the interface for listing data access
type ItemRepository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filters SearchFilters) ([]Item, error)
}

// itemRepository implements ItemRepository using PostgreSQL via sqlx
type itemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new ItemRepository instance
func NewItemRepository(db *sqlx.DB) ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, name, category, condition, age_days, age_years, description, image, date_added, updated_at`

// List returns every listing ordered by numeric id. No pagination: the
// API contract is the full set in one response.
func (r *itemRepository) List(ctx context.Context) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY id::bigint`

	items := []Item{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID retrieves a single listing by its sequential id
func (r *itemRepository) GetByID(ctx context.Context, id string) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item := &Item{}
	if err := r.db.GetContext(ctx, item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// Create inserts a new listing with a server-assigned sequential id.
// The id comes from an atomically incremented counter row, so two
// concurrent creates can never mint the same id. Any id already on the
// item is discarded.
func (r *itemRepository) Create(ctx context.Context, item *Item) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int64
	counterQuery := `
		INSERT INTO counters (name, value) VALUES ('item_id', 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`
	if err := tx.QueryRowxContext(ctx, counterQuery).Scan(&next); err != nil {
		return err
	}
	item.ID = strconv.FormatInt(next, 10)

	insertQuery := `
		INSERT INTO items (id, name, category, condition, age_days, age_years, description, image, date_added)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, insertQuery,
		item.ID,
		item.Name,
		item.Category,
		item.Condition,
		item.AgeDays,
		item.AgeYears,
		item.Description,
		item.Image,
		item.DateAdded,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Update replaces the mutable fields of a listing and stamps updated_at
func (r *itemRepository) Update(ctx context.Context, item *Item) error {
	query := `
		UPDATE items
		SET category = $1, condition = $2, age_days = $3, age_years = $4, description = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		item.Category,
		item.Condition,
		item.AgeDays,
		item.AgeYears,
		item.Description,
		item.ID,
	).Scan(&item.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrItemNotFound
		}
		return err
	}
	return nil
}

// Delete removes a listing by id
func (r *itemRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Search returns listings matching the given filters, all combined with
// AND. Absent filters contribute nothing to the predicate, so an empty
// filter set returns the full listing set.
func (r *itemRepository) Search(ctx context.Context, filters SearchFilters) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filters.Name != "" {
		query += fmt.Sprintf(" AND name ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, filters.Name)
		argIdx++
	}
	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, filters.Category)
		argIdx++
	}
	if filters.Condition != "" {
		query += fmt.Sprintf(" AND condition = $%d", argIdx)
		args = append(args, filters.Condition)
		argIdx++
	}
	if filters.MaxAgeYears != nil {
		query += fmt.Sprintf(" AND age_years <= $%d", argIdx)
		args = append(args, *filters.MaxAgeYears)
		argIdx++
	}

	query += " ORDER BY id::bigint"

	items := []Item{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}
