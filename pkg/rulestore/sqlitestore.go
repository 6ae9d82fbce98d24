package rulestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// SQLiteStore is a SQLite-backed RuleStore. Filterable rule attributes are
// extracted into indexed columns; the full rule travels in a JSON payload
// column. Replacement runs as a single transaction so concurrent queries
// see either the old or the new rule set.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the rule database at dbPath. Use
// ":memory:" for an ephemeral store in tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule database: %w", err)
	}

	// SQLite serializes writes anyway; keep the pool small.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to rule database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize rule schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS association_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		template_id TEXT NOT NULL,
		consequence_path TEXT NOT NULL,
		confidence REAL NOT NULL,
		support REAL NOT NULL,
		premise_size INTEGER NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rules_template ON association_rules(template_id);
	CREATE INDEX IF NOT EXISTS idx_rules_consequence ON association_rules(consequence_path, confidence);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceTemplateRules deletes the template's rules and inserts the new
// set inside one transaction.
func (s *SQLiteStore) ReplaceTemplateRules(ctx context.Context, templateID string, rules []models.AssociationRule) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin rule replacement: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM association_rules WHERE template_id = ?", templateID); err != nil {
		return 0, fmt.Errorf("failed to delete rules for template %s: %w", templateID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO association_rules (template_id, consequence_path, confidence, support, premise_size, payload)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare rule insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rule := range rules {
		if rule.ConsequenceSize != 1 || len(rule.Consequence) != 1 {
			continue
		}
		payload, err := json.Marshal(rule)
		if err != nil {
			return 0, fmt.Errorf("failed to encode rule: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			rule.TemplateID,
			rule.Consequence[0].FieldNormalizedPath,
			rule.Confidence,
			rule.Support,
			rule.PremiseSize,
			string(payload),
		); err != nil {
			return 0, fmt.Errorf("failed to insert rule: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rule replacement: %w", err)
	}
	return inserted, nil
}

// ListTemplateIDs returns the distinct templates with stored rules.
func (s *SQLiteStore) ListTemplateIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT template_id FROM association_rules ORDER BY template_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list template ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan template id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Query pre-filters candidate rows in SQL on the indexed columns, then
// applies the full clause-matching semantics in memory.
func (s *SQLiteStore) Query(ctx context.Context, criteria models.QueryCriteria) ([]models.AssociationRule, error) {
	query := "SELECT payload FROM association_rules WHERE consequence_path = ?"
	args := []any{criteria.ConsequencePath}

	if criteria.TemplateID != "" {
		query += " AND template_id = ?"
		args = append(args, criteria.TemplateID)
	}
	if criteria.FilterByConfidence {
		query += " AND confidence >= ?"
		args = append(args, criteria.MinConfidence)
	}
	if criteria.FilterBySupport {
		query += " AND support >= ?"
		args = append(args, criteria.MinSupport)
	}
	if criteria.MatchMode == models.MatchModeStrict {
		query += " AND premise_size = ?"
		args = append(args, criteria.PremiseCount)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var matched []models.AssociationRule
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan rule payload: %w", err)
		}
		var rule models.AssociationRule
		if err := json.Unmarshal([]byte(payload), &rule); err != nil {
			return nil, fmt.Errorf("failed to decode rule payload: %w", err)
		}
		if MatchesCriteria(rule, criteria) {
			matched = append(matched, rule)
		}
	}
	return matched, rows.Err()
}

// Count returns the number of stored rules.
func (s *SQLiteStore) Count(ctx context.Context, templateID string) (int64, error) {
	var (
		count int64
		err   error
	)
	if templateID != "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM association_rules WHERE template_id = ?", templateID).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM association_rules").Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
