package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/medtrack/medtrack-go/internal/model"
)

const drugColumns = `d.id, d.user_id, d.title, d.daily_frequency, d.price, d.link, d.image`

// DrugRepository handles drug persistence, including the tag and
// ingredient association rows.
type DrugRepository struct {
	db *sql.DB
}

// NewDrugRepository creates a new DrugRepository.
func NewDrugRepository(db *sql.DB) *DrugRepository {
	return &DrugRepository{db: db}
}

// Create inserts the drug and its associations in one transaction and sets
// the generated ID.
func (r *DrugRepository) Create(ctx context.Context, d *model.Drug) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO drugs (user_id, title, daily_frequency, price, link, image) VALUES (?, ?, ?, ?, ?, ?)`

		result, err := tx.ExecContext(ctx, query, d.UserID, d.Title, d.DailyFrequency, d.Price, d.Link, d.Image)
		if err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		d.ID = id

		return replaceLinks(ctx, tx, d)
	})
}

// List returns the user's drugs ordered by id descending. Non-empty filter
// lists keep drugs linked to at least one of the given ids; the tag and
// ingredient conditions are combined with AND.
func (r *DrugRepository) List(ctx context.Context, userID int64, filter model.DrugFilter) ([]model.Drug, error) {
	query := `SELECT ` + drugColumns + ` FROM drugs d WHERE d.user_id = ?`
	args := []any{userID}

	if len(filter.TagIDs) > 0 {
		query += ` AND d.id IN (SELECT drug_id FROM drug_tags WHERE tag_id IN (` + placeholders(len(filter.TagIDs)) + `))`
		args = append(args, int64Args(filter.TagIDs)...)
	}
	if len(filter.IngredientIDs) > 0 {
		query += ` AND d.id IN (SELECT drug_id FROM drug_ingredients WHERE ingredient_id IN (` + placeholders(len(filter.IngredientIDs)) + `))`
		args = append(args, int64Args(filter.IngredientIDs)...)
	}
	query += ` ORDER BY d.id DESC`

	drugs, err := scanDrugs(r.db.QueryContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	if err := loadRelations(ctx, r.db, drugs); err != nil {
		return nil, err
	}

	return drugs, nil
}

// Get retrieves a drug owned by userID with its tags and ingredients.
func (r *DrugRepository) Get(ctx context.Context, userID, id int64) (*model.Drug, error) {
	query := `SELECT ` + drugColumns + ` FROM drugs d WHERE d.id = ? AND d.user_id = ?`

	drugs, err := scanDrugs(r.db.QueryContext(ctx, query, id, userID))
	if err != nil {
		return nil, err
	}
	if len(drugs) == 0 {
		return nil, ErrNotFound
	}

	if err := loadRelations(ctx, r.db, drugs); err != nil {
		return nil, err
	}

	return &drugs[0], nil
}

// Update writes all columns of d and replaces its association rows.
func (r *DrugRepository) Update(ctx context.Context, d *model.Drug) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `UPDATE drugs SET title = ?, daily_frequency = ?, price = ?, link = ?, image = ? WHERE id = ? AND user_id = ?`

		if _, err := tx.ExecContext(ctx, query, d.Title, d.DailyFrequency, d.Price, d.Link, d.Image, d.ID, d.UserID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM drug_tags WHERE drug_id = ?`, d.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM drug_ingredients WHERE drug_id = ?`, d.ID); err != nil {
			return err
		}

		return replaceLinks(ctx, tx, d)
	})
}

// UpdateImage sets the stored image path of a drug owned by userID.
func (r *DrugRepository) UpdateImage(ctx context.Context, userID, id int64, image string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE drugs SET image = ? WHERE id = ? AND user_id = ?`, image, id, userID)
	return err
}

// Delete removes a drug owned by userID and its association rows.
func (r *DrugRepository) Delete(ctx context.Context, userID, id int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM drugs WHERE id = ? AND user_id = ?`, id, userID).Scan(&owner)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		for _, stmt := range []string{
			`DELETE FROM drug_tags WHERE drug_id = ?`,
			`DELETE FROM drug_ingredients WHERE drug_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM drugs WHERE id = ? AND user_id = ?`, id, userID)
		return err
	})
}

func replaceLinks(ctx context.Context, q querier, d *model.Drug) error {
	for _, t := range d.Tags {
		if _, err := q.ExecContext(ctx, `INSERT INTO drug_tags (drug_id, tag_id) VALUES (?, ?)`, d.ID, t.ID); err != nil {
			return err
		}
	}
	for _, i := range d.Ingredients {
		if _, err := q.ExecContext(ctx, `INSERT INTO drug_ingredients (drug_id, ingredient_id) VALUES (?, ?)`, d.ID, i.ID); err != nil {
			return err
		}
	}
	return nil
}

func scanDrugs(rows *sql.Rows, err error) ([]model.Drug, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drugs := []model.Drug{}
	for rows.Next() {
		var d model.Drug
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.DailyFrequency, &d.Price, &d.Link, &d.Image); err != nil {
			return nil, err
		}
		d.Tags = []model.Attribute{}
		d.Ingredients = []model.Attribute{}
		drugs = append(drugs, d)
	}

	return drugs, rows.Err()
}

// loadRelations fills Tags and Ingredients of drugs with two batched queries.
func loadRelations(ctx context.Context, q querier, drugs []model.Drug) error {
	if len(drugs) == 0 {
		return nil
	}

	index := make(map[int64]int, len(drugs))
	ids := make([]int64, len(drugs))
	for i, d := range drugs {
		index[d.ID] = i
		ids[i] = d.ID
	}

	relations := []struct {
		table, joinTable, joinCol string
		target                    func(d *model.Drug) *[]model.Attribute
	}{
		{"tags", "drug_tags", "tag_id", func(d *model.Drug) *[]model.Attribute { return &d.Tags }},
		{"ingredients", "drug_ingredients", "ingredient_id", func(d *model.Drug) *[]model.Attribute { return &d.Ingredients }},
	}

	for _, rel := range relations {
		query := fmt.Sprintf(`SELECT j.drug_id, a.id, a.user_id, a.name FROM %s j
			JOIN %s a ON a.id = j.%s
			WHERE j.drug_id IN (%s)
			ORDER BY a.id`, rel.joinTable, rel.table, rel.joinCol, placeholders(len(ids)))

		rows, err := q.QueryContext(ctx, query, int64Args(ids)...)
		if err != nil {
			return err
		}

		for rows.Next() {
			var drugID int64
			var a model.Attribute
			if err := rows.Scan(&drugID, &a.ID, &a.UserID, &a.Name); err != nil {
				rows.Close()
				return err
			}
			if i, ok := index[drugID]; ok {
				target := rel.target(&drugs[i])
				*target = append(*target, a)
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}

	return nil
}
