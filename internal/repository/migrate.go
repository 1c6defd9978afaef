package repository

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// column carries one definition per dialect.
type column struct {
	name   string
	pg     string
	sqlite string
}

type index struct {
	name    string
	unique  bool
	columns []string
}

// table is created with base and then brought forward with added. Added columns must be
// nullable or carry a default so they can be appended to populated tables.
type table struct {
	name    string
	base    []column
	added   []column
	indexes []index
}

var schema = []table{
	{
		name: "cause_list_entries",
		base: []column{
			{"id", "BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
			{"suit_no", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"hearing_date", "DATE NOT NULL", "TEXT NOT NULL"},
			{"case_title", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"first_party_name", "TEXT", "TEXT"},
			{"second_party_name", "TEXT", "TEXT"},
			{"remarks", "TEXT", "TEXT"},
			{"case_type", "TEXT", "TEXT"},
			{"hearing_time", "TIME", "TEXT"},
			{"created_at", "TIMESTAMPTZ NOT NULL DEFAULT now()", "DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP"},
		},
		added: []column{
			{"court_type", "TEXT", "TEXT"},
			{"venue", "TEXT", "TEXT"},
			{"location", "TEXT", "TEXT"},
			{"source_document", "TEXT NOT NULL DEFAULT ''", "TEXT NOT NULL DEFAULT ''"},
			{"page_number", "INTEGER NOT NULL DEFAULT 0", "INTEGER NOT NULL DEFAULT 0"},
			{"status", "TEXT NOT NULL DEFAULT 'PENDING'", "TEXT NOT NULL DEFAULT 'PENDING'"},
			{"is_active", "BOOLEAN NOT NULL DEFAULT TRUE", "BOOLEAN NOT NULL DEFAULT 1"},
			{"created_by", "TEXT", "TEXT"},
			{"updated_by", "TEXT", "TEXT"},
			{"updated_at", "TIMESTAMPTZ", "DATETIME"},
		},
		indexes: []index{{"cause_list_entries_suit_no_hearing_date_key", true, []string{"suit_no", "hearing_date"}}},
	},
	{
		name: "people",
		base: []column{
			{"id", "BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
			{"full_name", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"previous_names", "TEXT NOT NULL DEFAULT '[]'", "TEXT NOT NULL DEFAULT '[]'"},
			{"date_of_birth", "DATE", "TEXT"},
			{"place_of_birth", "TEXT", "TEXT"},
			{"created_at", "TIMESTAMPTZ NOT NULL DEFAULT now()", "DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP"},
		},
		added: []column{
			{"profession", "TEXT", "TEXT"},
			{"address", "TEXT", "TEXT"},
			{"is_marriage_officer", "BOOLEAN NOT NULL DEFAULT FALSE", "BOOLEAN NOT NULL DEFAULT 0"},
			{"marriage_officer_church", "TEXT", "TEXT"},
			{"updated_at", "TIMESTAMPTZ", "DATETIME"},
		},
	},
	{
		name: "gazettes",
		base: []column{
			{"id", "BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
			{"gazette_type", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"item_number", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"document_filename", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"person_id", "BIGINT REFERENCES people(id)", "INTEGER REFERENCES people(id)"},
			{"full_name", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"created_at", "TIMESTAMPTZ NOT NULL DEFAULT now()", "DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP"},
		},
		added: []column{
			{"gazette_number", "TEXT", "TEXT"},
			{"gazette_date", "DATE", "TEXT"},
			{"old_name", "TEXT", "TEXT"},
			{"new_name", "TEXT", "TEXT"},
			{"alias_names", "TEXT NOT NULL DEFAULT '[]'", "TEXT NOT NULL DEFAULT '[]'"},
			{"profession", "TEXT", "TEXT"},
			{"address", "TEXT", "TEXT"},
			{"old_date_of_birth", "DATE", "TEXT"},
			{"new_date_of_birth", "DATE", "TEXT"},
			{"old_place_of_birth", "TEXT", "TEXT"},
			{"new_place_of_birth", "TEXT", "TEXT"},
			{"effective_date", "DATE", "TEXT"},
			{"church", "TEXT", "TEXT"},
			{"location", "TEXT", "TEXT"},
			{"remarks", "TEXT", "TEXT"},
		},
		indexes: []index{{"gazettes_item_number_document_filename_key", true, []string{"item_number", "document_filename"}}},
	},
	{
		name: "import_runs",
		base: []column{
			{"id", "UUID PRIMARY KEY", "TEXT PRIMARY KEY"},
			{"kind", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"source_path", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"source_hash", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"format", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"gazette_type", "TEXT", "TEXT"},
			{"status", "TEXT NOT NULL", "TEXT NOT NULL"},
			{"pages", "INTEGER NOT NULL DEFAULT 0", "INTEGER NOT NULL DEFAULT 0"},
			{"parsed", "INTEGER NOT NULL DEFAULT 0", "INTEGER NOT NULL DEFAULT 0"},
			{"created", "INTEGER NOT NULL DEFAULT 0", "INTEGER NOT NULL DEFAULT 0"},
			{"updated", "INTEGER NOT NULL DEFAULT 0", "INTEGER NOT NULL DEFAULT 0"},
			{"skipped", "INTEGER NOT NULL DEFAULT 0", "INTEGER NOT NULL DEFAULT 0"},
			{"error_message", "TEXT", "TEXT"},
			{"started_at", "TIMESTAMPTZ NOT NULL", "DATETIME NOT NULL"},
			{"finished_at", "TIMESTAMPTZ", "DATETIME"},
		},
		indexes: []index{{"import_runs_source_hash_idx", false, []string{"source_hash"}}},
	},
}

// Migrate creates missing tables, columns and indexes. It is forward-only and safe to
// run on every start.
func Migrate(ctx context.Context, db *DB) error {
	d := db.Dialect()
	for _, t := range schema {
		if _, err := db.exec(ctx, t.createSQL(d), nil); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		if err := db.addColumns(ctx, t); err != nil {
			return err
		}
		for _, ix := range t.indexes {
			unique := ""
			if ix.unique {
				unique = "UNIQUE "
			}
			q := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)", unique, ix.name, t.name, strings.Join(ix.columns, ", "))
			if _, err := db.exec(ctx, q, nil); err != nil {
				return fmt.Errorf("index %s: %w", ix.name, err)
			}
		}
	}
	db.logger.Info("schema up to date", "dialect", d, "tables", len(schema))
	return nil
}

func (t table) createSQL(d string) string {
	defs := make([]string, 0, len(t.base)+len(t.added))
	for _, c := range append(append([]column{}, t.base...), t.added...) {
		defs = append(defs, c.name+" "+c.def(d))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.name, strings.Join(defs, ", "))
}

func (c column) def(d string) string {
	if d == dialect.Postgres {
		return c.pg
	}
	return c.sqlite
}

func (db *DB) addColumns(ctx context.Context, t table) error {
	d := db.Dialect()
	if d == dialect.Postgres {
		for _, c := range t.added {
			q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", t.name, c.name, c.pg)
			if _, err := db.exec(ctx, q, nil); err != nil {
				return fmt.Errorf("add %s.%s: %w", t.name, c.name, err)
			}
		}
		return nil
	}

	// SQLite has no IF NOT EXISTS for columns
	existing := map[string]bool{}
	err := db.query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", t.name), nil, func(rows entsql.ColumnScanner) error {
		var (
			cid     int
			name    string
			typ     string
			notnull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("inspect %s: %w", t.name, err)
	}
	for _, c := range t.added {
		if existing[c.name] {
			continue
		}
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", t.name, c.name, c.sqlite)
		if _, err := db.exec(ctx, q, nil); err != nil {
			return fmt.Errorf("add %s.%s: %w", t.name, c.name, err)
		}
	}
	return nil
}
