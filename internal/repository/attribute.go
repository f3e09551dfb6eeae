package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/medtrack/medtrack-go/internal/model"
)

// AttributeRepository persists one kind of drug attribute (tags or
// ingredients). Both kinds share a schema and differ only in table names.
type AttributeRepository struct {
	db        *sql.DB
	table     string
	joinTable string
	joinCol   string
}

// NewTagRepository creates an AttributeRepository over the tags table.
func NewTagRepository(db *sql.DB) *AttributeRepository {
	return &AttributeRepository{db: db, table: "tags", joinTable: "drug_tags", joinCol: "tag_id"}
}

// NewIngredientRepository creates an AttributeRepository over the ingredients table.
func NewIngredientRepository(db *sql.DB) *AttributeRepository {
	return &AttributeRepository{db: db, table: "ingredients", joinTable: "drug_ingredients", joinCol: "ingredient_id"}
}

// Create inserts a new attribute and sets the generated ID.
func (r *AttributeRepository) Create(ctx context.Context, a *model.Attribute) error {
	query := fmt.Sprintf(`INSERT INTO %s (user_id, name) VALUES (?, ?)`, r.table)

	result, err := r.db.ExecContext(ctx, query, a.UserID, a.Name)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	a.ID = id
	return nil
}

// List returns the user's attributes ordered by name descending. With
// assignedOnly set, only attributes linked to one of the user's drugs are
// returned, each once.
func (r *AttributeRepository) List(ctx context.Context, userID int64, assignedOnly bool) ([]model.Attribute, error) {
	query := fmt.Sprintf(`SELECT a.id, a.user_id, a.name FROM %s a WHERE a.user_id = ? ORDER BY a.name DESC, a.id DESC`, r.table)
	args := []any{userID}

	if assignedOnly {
		query = fmt.Sprintf(`SELECT DISTINCT a.id, a.user_id, a.name FROM %s a
			JOIN %s j ON j.%s = a.id
			JOIN drugs d ON d.id = j.drug_id
			WHERE a.user_id = ? AND d.user_id = ?
			ORDER BY a.name DESC, a.id DESC`, r.table, r.joinTable, r.joinCol)
		args = append(args, userID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attrs := []model.Attribute{}
	for rows.Next() {
		var a model.Attribute
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name); err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}

	return attrs, rows.Err()
}

// Get retrieves an attribute owned by userID.
func (r *AttributeRepository) Get(ctx context.Context, userID, id int64) (*model.Attribute, error) {
	query := fmt.Sprintf(`SELECT id, user_id, name FROM %s WHERE id = ? AND user_id = ?`, r.table)

	a := &model.Attribute{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&a.ID, &a.UserID, &a.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return a, nil
}

// Update renames an attribute owned by a.UserID.
func (r *AttributeRepository) Update(ctx context.Context, a *model.Attribute) error {
	query := fmt.Sprintf(`UPDATE %s SET name = ? WHERE id = ? AND user_id = ?`, r.table)
	_, err := r.db.ExecContext(ctx, query, a.Name, a.ID, a.UserID)
	return err
}

// Delete removes an attribute owned by userID together with its drug links.
func (r *AttributeRepository) Delete(ctx context.Context, userID, id int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		unlink := fmt.Sprintf(`DELETE FROM %s WHERE %s IN (SELECT id FROM %s WHERE id = ? AND user_id = ?)`,
			r.joinTable, r.joinCol, r.table)
		if _, err := tx.ExecContext(ctx, unlink, id, userID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, r.table), id, userID)
		if err != nil {
			return err
		}

		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// OwnedIDs returns the subset of ids that exist and belong to userID.
func (r *AttributeRepository) OwnedIDs(ctx context.Context, userID int64, ids []int64) (map[int64]bool, error) {
	owned := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return owned, nil
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id = ? AND id IN (%s)`, r.table, placeholders(len(ids)))
	args := append([]any{userID}, int64Args(ids)...)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owned[id] = true
	}

	return owned, rows.Err()
}
