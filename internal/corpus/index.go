// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/capacity-news/pkg/types"
)

const dbFile = "capacity_news.db"

// Index is the SQLite retrieval index over the article corpus. It is
// rebuilt from the corpus JSON and never the source of truth.
type Index struct {
	db         *sql.DB
	indexDir   string
	maxResults int
}

// NewIndex opens or creates the index database at indexDir/capacity_news.db
// and ensures the schema exists.
func NewIndex(cfg types.IndexConfig) (*Index, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	idx := &Index{db: db, indexDir: cfg.IndexDir, maxResults: maxResults}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return idx, nil
}

// Close releases the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			title TEXT,
			outlet TEXT,
			published_at TEXT,
			status TEXT,
			company_primary TEXT,
			event_types TEXT,
			key_facts_text TEXT,
			flags TEXT,
			has_bioreactor_l INTEGER,
			has_footprint INTEGER,
			has_fillfinish_output INTEGER,
			has_capex INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_outlet ON articles(outlet)`,
		`CREATE TABLE IF NOT EXISTS facts (
			article_url TEXT NOT NULL REFERENCES articles(url),
			fact_type TEXT NOT NULL,
			value_raw TEXT,
			value_norm TEXT,
			unit TEXT,
			evidence_snippet TEXT,
			context TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_article_url ON facts(article_url)`,
	}
	for _, stmt := range statements {
		if _, err := x.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := x.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='articles_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE articles_fts USING fts5(title, key_facts_text, content=articles, content_rowid=rowid)`,
			`CREATE TRIGGER articles_ai AFTER INSERT ON articles BEGIN
				INSERT INTO articles_fts(rowid, title, key_facts_text) VALUES (new.rowid, new.title, new.key_facts_text);
			END`,
			`CREATE TRIGGER articles_ad AFTER DELETE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, key_facts_text) VALUES('delete', old.rowid, old.title, old.key_facts_text);
			END`,
			`CREATE TRIGGER articles_au AFTER UPDATE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, key_facts_text) VALUES('delete', old.rowid, old.title, old.key_facts_text);
				INSERT INTO articles_fts(rowid, title, key_facts_text) VALUES (new.rowid, new.title, new.key_facts_text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := x.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Rebuild replaces the entire index contents with the given corpus.
// Articles without a URL cannot be indexed and are counted as skipped.
func (x *Index) Rebuild(ctx context.Context, articles []types.Article, w io.Writer) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM facts`); err != nil {
		return fmt.Errorf("clearing facts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM articles`); err != nil {
		return fmt.Errorf("clearing articles: %w", err)
	}

	articleStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (id, url, title, outlet, published_at, status,
			company_primary, event_types, key_facts_text, flags,
			has_bioreactor_l, has_footprint, has_fillfinish_output, has_capex)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing article insert: %w", err)
	}
	defer articleStmt.Close()

	factStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO facts (article_url, fact_type, value_raw, value_norm, unit, evidence_snippet, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing fact insert: %w", err)
	}
	defer factStmt.Close()

	indexed, skipped := 0, 0
	for _, a := range articles {
		if a.URL == "" {
			skipped++
			continue
		}

		eventsJSON, _ := json.Marshal(a.EventTypes)
		flagsJSON, _ := json.Marshal(a.Flags)
		_, err := articleStmt.ExecContext(ctx,
			a.ID, a.URL, a.Title, a.Outlet, a.PublishedAt, string(a.Status),
			a.CompanyPrimary, string(eventsJSON), a.KeyFactsText, string(flagsJSON),
			a.HasBioreactorL, a.HasFootprint, a.HasFillFinishOutput, a.HasCapex,
		)
		if err != nil {
			return fmt.Errorf("inserting article %s: %w", a.URL, err)
		}

		for _, f := range a.Facts {
			norm := ""
			if f.ValueNorm.Valid {
				normJSON, _ := json.Marshal(f.ValueNorm)
				norm = string(normJSON)
			}
			_, err := factStmt.ExecContext(ctx,
				a.URL, string(f.Type), f.ValueRaw, norm, f.Unit, f.EvidenceSnippet, f.Context,
			)
			if err != nil {
				return fmt.Errorf("inserting fact for %s: %w", a.URL, err)
			}
		}
		indexed++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index rebuild: %w", err)
	}

	fmt.Fprintf(w, "indexed %d articles", indexed)
	if skipped > 0 {
		fmt.Fprintf(w, " (%d without url skipped)", skipped)
	}
	fmt.Fprintln(w)
	return nil
}

// QueryOptions holds filters for index queries.
type QueryOptions struct {
	// Text is an FTS5 full-text search over title and key facts.
	Text string

	// Status filters by classification status.
	Status types.Status

	// Outlet filters by outlet display name.
	Outlet string

	// EventType filters articles containing the given event type.
	EventType types.EventType

	// MaxResults limits result count. Zero uses the index default.
	MaxResults int
}

// Query retrieves articles matching the options. Full-text queries are
// ranked by relevance; structured-only queries sort newest first.
func (x *Index) Query(ctx context.Context, opts QueryOptions) ([]types.Article, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = x.maxResults
	}

	var (
		qb      strings.Builder
		args    []any
		useFTS  = opts.Text != ""
		columns = `a.id, a.url, a.title, a.outlet, a.published_at, a.status,
			a.company_primary, a.event_types, a.key_facts_text, a.flags,
			a.has_bioreactor_l, a.has_footprint, a.has_fillfinish_output, a.has_capex`
	)

	if useFTS {
		qb.WriteString(`SELECT ` + columns + `
			FROM articles_fts
			JOIN articles a ON a.rowid = articles_fts.rowid
			WHERE articles_fts MATCH ?`)
		args = append(args, opts.Text)
	} else {
		qb.WriteString(`SELECT ` + columns + `
			FROM articles a
			WHERE 1=1`)
	}

	if opts.Status != "" {
		qb.WriteString(` AND a.status = ?`)
		args = append(args, string(opts.Status))
	}
	if opts.Outlet != "" {
		qb.WriteString(` AND a.outlet = ?`)
		args = append(args, opts.Outlet)
	}
	if opts.EventType != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(a.event_types) WHERE value = ?)`)
		args = append(args, string(opts.EventType))
	}

	if useFTS {
		qb.WriteString(` ORDER BY articles_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY a.published_at DESC`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := x.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []types.Article
	for rows.Next() {
		var (
			a          types.Article
			status     string
			eventsJSON sql.NullString
			flagsJSON  sql.NullString
		)
		if err := rows.Scan(
			&a.ID, &a.URL, &a.Title, &a.Outlet, &a.PublishedAt, &status,
			&a.CompanyPrimary, &eventsJSON, &a.KeyFactsText, &flagsJSON,
			&a.HasBioreactorL, &a.HasFootprint, &a.HasFillFinishOutput, &a.HasCapex,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		a.Status = types.Status(status)
		if eventsJSON.Valid {
			json.Unmarshal([]byte(eventsJSON.String), &a.EventTypes)
		}
		if flagsJSON.Valid {
			json.Unmarshal([]byte(flagsJSON.String), &a.Flags)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		facts, err := x.articleFacts(ctx, results[i].URL)
		if err != nil {
			return nil, err
		}
		results[i].Facts = facts
	}
	return results, nil
}

func (x *Index) articleFacts(ctx context.Context, articleURL string) ([]types.Fact, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT fact_type, value_raw, value_norm, unit, evidence_snippet, context
		 FROM facts WHERE article_url = ? ORDER BY rowid`, articleURL)
	if err != nil {
		return nil, fmt.Errorf("querying facts for %s: %w", articleURL, err)
	}
	defer rows.Close()

	var facts []types.Fact
	for rows.Next() {
		var (
			f        types.Fact
			factType string
			norm     sql.NullString
		)
		if err := rows.Scan(&factType, &f.ValueRaw, &norm, &f.Unit, &f.EvidenceSnippet, &f.Context); err != nil {
			return nil, fmt.Errorf("scanning fact: %w", err)
		}
		f.Type = types.FactType(factType)
		if norm.Valid && norm.String != "" {
			json.Unmarshal([]byte(norm.String), &f.ValueNorm)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// ExportYAML writes the query result set to indexDir/export.yaml.
func (x *Index) ExportYAML(ctx context.Context, opts QueryOptions) error {
	opts.MaxResults = 100000
	results, err := x.Query(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(x.indexDir, "export.yaml")
	return os.WriteFile(path, data, 0o644)
}
