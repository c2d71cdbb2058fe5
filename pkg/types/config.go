package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout per attempt.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Retries is the number of fetch attempts before a URL is given up on
	// (default 3).
	Retries int `json:"retries" yaml:"retries"`
}

// DiscoveryConfig holds settings for the discovery and parse stage.
type DiscoveryConfig struct {
	HTTPConfig `yaml:",inline"`

	// BackfillMonths bounds how far back discovery reaches; the cutoff is
	// the run time minus BackfillMonths × 30 days (default 12).
	BackfillMonths int `json:"backfill_months" yaml:"backfill_months"`

	// MaxPages caps listing pagination per outlet (default 20).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// MaxArticles caps new articles across all outlets; zero means no cap.
	MaxArticles int `json:"max_articles" yaml:"max_articles"`
}

// CorpusConfig holds settings for the persisted corpus.
type CorpusConfig struct {
	// DataFile is the path of the persisted JSON corpus.
	DataFile string `json:"data_file" yaml:"data_file"`

	// RetentionYears is the maximum article age; records with a parsed
	// published date older than RetentionYears × 365 days are dropped
	// (default 5). Records with no parseable date are always retained.
	RetentionYears int `json:"retention_years" yaml:"retention_years"`
}

// IndexConfig holds settings for the SQLite query index.
type IndexConfig struct {
	// IndexDir is the directory holding the index database.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ReprocessConfig holds settings for refreshing already-persisted records.
type ReprocessConfig struct {
	// Enabled re-fetches and re-classifies existing records before the merge.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Outlets limits reprocessing to the named outlets; empty means all.
	Outlets []string `json:"outlets,omitempty" yaml:"outlets,omitempty"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Corpus    CorpusConfig    `json:"corpus" yaml:"corpus"`
	Index     IndexConfig     `json:"index" yaml:"index"`
	Reprocess ReprocessConfig `json:"reprocess" yaml:"reprocess"`

	// ReportFile is an optional path for the YAML run report; empty
	// disables the report.
	ReportFile string `json:"report_file" yaml:"report_file"`
}
