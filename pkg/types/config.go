// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "ontomap/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// VocabularyFile names an OBO export to load as a term graph.
type VocabularyFile struct {
	// Name is the vocabulary identifier (e.g. "DOID", "HP", "MEDIC").
	Name string `json:"name" yaml:"name" mapstructure:"name" validate:"required"`

	// Path is the OBO file on disk.
	Path string `json:"path" yaml:"path" mapstructure:"path" validate:"required"`
}

// Neo4jConfig locates an ontology graph stored in Neo4j. Vocabularies
// listed here are loaded from the graph instead of from OBO files.
type Neo4jConfig struct {
	URI          string   `json:"uri" yaml:"uri" mapstructure:"uri"`
	User         string   `json:"user" yaml:"user" mapstructure:"user"`
	Password     string   `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	Vocabularies []string `json:"vocabularies,omitempty" yaml:"vocabularies,omitempty" mapstructure:"vocabularies"`
}

// Enabled reports whether a Neo4j graph is configured.
func (c Neo4jConfig) Enabled() bool {
	return c.URI != "" && len(c.Vocabularies) > 0
}

// OntologyConfig holds settings for the ontology gateway.
type OntologyConfig struct {
	// Files lists OBO exports to load.
	Files []VocabularyFile `json:"files" yaml:"files" mapstructure:"files" validate:"dive"`

	// Secondary names the disease vocabulary used for parent inference (e.g. "MEDIC").
	Secondary string `json:"secondary" yaml:"secondary" mapstructure:"secondary"`

	// Neo4j optionally serves vocabularies from a graph database.
	Neo4j Neo4jConfig `json:"neo4j" yaml:"neo4j" mapstructure:"neo4j"`

	// LoadTimeout bounds how long a run waits for vocabularies to load (default 10m).
	LoadTimeout time.Duration `json:"load_timeout" yaml:"load_timeout" mapstructure:"load_timeout"`
}

// XrefConfig holds settings for the cross-reference index.
type XrefConfig struct {
	// Export is the ontology export (OBO) scanned for xref lines.
	Export string `json:"export" yaml:"export" mapstructure:"export" validate:"required"`

	// PrefixAliases maps alternate code prefixes to canonical ones (e.g. MSH -> MESH).
	PrefixAliases map[string]string `json:"prefix_aliases,omitempty" yaml:"prefix_aliases,omitempty" mapstructure:"prefix_aliases"`
}

// CurationConfig holds settings for the manual mapping table.
type CurationConfig struct {
	// MappingFile is the curated TSV table.
	MappingFile string `json:"mapping_file" yaml:"mapping_file" mapstructure:"mapping_file" validate:"required"`
}

// AnnotatorConfig holds settings for the fuzzy text annotation service.
type AnnotatorConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the service root (e.g. "https://data.bioontology.org").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// APIKey authenticates requests. Usually loaded from .secrets/.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Ontologies restricts annotation to these vocabularies (e.g. DOID, HP).
	Ontologies []string `json:"ontologies" yaml:"ontologies" mapstructure:"ontologies"`

	// RequestsPerSecond limits the request rate (0 = unlimited).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`

	// MaxAttempts is the total number of tries per call (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`

	// RetryDelay is the fixed delay between tries (default 10s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// AcceptedMatchTypes lists the match conditions accepted for the top
	// candidate (default PREF, SYN).
	AcceptedMatchTypes []string `json:"accepted_match_types" yaml:"accepted_match_types" mapstructure:"accepted_match_types"`

	// IgnoreURIs lists terms never accepted from the annotator.
	IgnoreURIs []string `json:"ignore_uris,omitempty" yaml:"ignore_uris,omitempty" mapstructure:"ignore_uris"`

	// StopWords are removed by the modified search (default "type").
	StopWords []string `json:"stop_words,omitempty" yaml:"stop_words,omitempty" mapstructure:"stop_words"`
}

// GenesConfig holds settings for the gene resolver.
type GenesConfig struct {
	// GeneInfoFile is an NCBI gene_info TSV.
	GeneInfoFile string `json:"gene_info_file" yaml:"gene_info_file" mapstructure:"gene_info_file"`

	// OverridesFile is the YAML special-case table.
	OverridesFile string `json:"overrides_file,omitempty" yaml:"overrides_file,omitempty" mapstructure:"overrides_file"`
}

// OutputConfig holds settings for result sinks.
type OutputConfig struct {
	// Dir receives the primary and audit TSV files.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir" validate:"required"`

	// DBPath optionally persists results into a SQLite run store.
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty" mapstructure:"db_path"`

	// MetricsFile optionally receives Prometheus text-format run metrics.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
}

// ResolveConfig holds settings for the resolution batch.
type ResolveConfig struct {
	// Workers is the number of records resolved in parallel (default 1).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers" validate:"gte=0,lte=64"`
}

// SourceConfig holds per-source adapter settings.
type SourceConfig struct {
	// Scores maps scoring markers ("?", "{", "[", "default") to score
	// values. Empty keeps the source's built-in scorer.
	Scores map[string]string `json:"scores,omitempty" yaml:"scores,omitempty" mapstructure:"scores"`

	// IncludeInferred keeps inferred associations (CTD) as IEA records.
	IncludeInferred bool `json:"include_inferred,omitempty" yaml:"include_inferred,omitempty" mapstructure:"include_inferred"`
}

// Config groups all settings for a resolution run.
type Config struct {
	Ontology  OntologyConfig  `json:"ontology" yaml:"ontology" mapstructure:"ontology"`
	Xref      XrefConfig      `json:"xref" yaml:"xref" mapstructure:"xref"`
	Curation  CurationConfig  `json:"curation" yaml:"curation" mapstructure:"curation"`
	Annotator AnnotatorConfig `json:"annotator" yaml:"annotator" mapstructure:"annotator"`
	Genes     GenesConfig     `json:"genes" yaml:"genes" mapstructure:"genes"`
	Output    OutputConfig    `json:"output" yaml:"output" mapstructure:"output"`
	Resolve   ResolveConfig   `json:"resolve" yaml:"resolve" mapstructure:"resolve"`

	Sources map[string]SourceConfig `json:"sources,omitempty" yaml:"sources,omitempty" mapstructure:"sources"`
}
