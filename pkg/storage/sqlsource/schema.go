package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schemaTemplate is the subset of the forum schema the Source reads. It is
// portable between PostgreSQL and SQLite and is meant for development
// databases and tests; production forums already have these tables.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS {prefix}users (
	user_id        BIGINT PRIMARY KEY,
	user_type      INTEGER NOT NULL DEFAULT 0,
	username       VARCHAR(255) NOT NULL,
	user_colour    VARCHAR(6) NOT NULL DEFAULT '',
	user_regdate   BIGINT NOT NULL DEFAULT 0,
	user_lastvisit BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS {prefix}sessions (
	session_id      VARCHAR(32) PRIMARY KEY,
	session_user_id BIGINT NOT NULL DEFAULT 0,
	session_ip      VARCHAR(40) NOT NULL DEFAULT '',
	session_time    BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS {prefix}posts (
	post_id   BIGINT PRIMARY KEY,
	post_time BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS {prefix}topics (
	topic_id   BIGINT PRIMARY KEY,
	topic_time BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS {prefix}sessions_time ON {prefix}sessions (session_time);
CREATE INDEX IF NOT EXISTS {prefix}users_lastvisit ON {prefix}users (user_lastvisit);
`

// Schema returns the DDL statements for prefix
func Schema(prefix string) []string {
	ddl := strings.ReplaceAll(schemaTemplate, "{prefix}", prefix)

	var stmts []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// EnsureSchema creates the tables read by the Source if they do not exist
func EnsureSchema(ctx context.Context, db *sql.DB, prefix string) error {
	for _, stmt := range Schema(prefix) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
