package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            {{pk}},
	email         VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT {{true}},
	is_staff      BOOLEAN NOT NULL DEFAULT {{false}},
	is_superuser  BOOLEAN NOT NULL DEFAULT {{false}},
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tags (
	id      {{pk}},
	user_id BIGINT NOT NULL,
	name    VARCHAR(255) NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS ingredients (
	id      {{pk}},
	user_id BIGINT NOT NULL,
	name    VARCHAR(255) NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS drugs (
	id              {{pk}},
	user_id         BIGINT NOT NULL,
	title           VARCHAR(255) NOT NULL,
	daily_frequency INTEGER NOT NULL,
	price           DECIMAL(5,2) NOT NULL,
	link            VARCHAR(255) NOT NULL DEFAULT '',
	image           VARCHAR(255) NOT NULL DEFAULT '',
	FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS drug_tags (
	drug_id BIGINT NOT NULL,
	tag_id  BIGINT NOT NULL,
	PRIMARY KEY (drug_id, tag_id),
	FOREIGN KEY (drug_id) REFERENCES drugs (id) ON DELETE CASCADE,
	FOREIGN KEY (tag_id) REFERENCES tags (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS drug_ingredients (
	drug_id       BIGINT NOT NULL,
	ingredient_id BIGINT NOT NULL,
	PRIMARY KEY (drug_id, ingredient_id),
	FOREIGN KEY (drug_id) REFERENCES drugs (id) ON DELETE CASCADE,
	FOREIGN KEY (ingredient_id) REFERENCES ingredients (id) ON DELETE CASCADE
);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var r *strings.Replacer
	switch driver {
	case DriverMySQL:
		r = strings.NewReplacer("{{pk}}", "BIGINT AUTO_INCREMENT PRIMARY KEY", "{{true}}", "TRUE", "{{false}}", "FALSE")
	case DriverSQLite:
		r = strings.NewReplacer("{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT", "{{true}}", "1", "{{false}}", "0")
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	for _, stmt := range strings.Split(r.Replace(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	return nil
}
