// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ontology

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/pdiddy/ontomap/pkg/types"
)

// vocabularyTermsQuery returns every term of one vocabulary with its is_a
// parents. Terms are (:Term {uri, label, code, obsolete, altCodes, xrefs,
// vocabulary}) nodes linked by [:IS_A] relationships.
const vocabularyTermsQuery = `
MATCH (t:Term {vocabulary: $vocabulary})
OPTIONAL MATCH (t)-[:IS_A]->(p:Term)
RETURN t.uri AS uri,
       coalesce(t.label, '') AS label,
       coalesce(t.code, '') AS code,
       coalesce(t.obsolete, false) AS obsolete,
       coalesce(t.altCodes, []) AS altCodes,
       coalesce(t.xrefs, []) AS xrefs,
       collect(p.uri) AS parents
`

// GraphClient wraps the Neo4j driver for read-only ontology queries.
type GraphClient struct {
	driver neo4j.DriverWithContext
}

// NewGraphClient creates a Neo4j client from configuration.
func NewGraphClient(cfg types.Neo4jConfig) (*GraphClient, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &GraphClient{driver: driver}, nil
}

// Verify checks connectivity to Neo4j.
func (c *GraphClient) Verify(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (c *GraphClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Neo4jLoader fills a vocabulary from the ontology graph.
type Neo4jLoader struct {
	Client *GraphClient
}

// Load reads every term of v's vocabulary and marks v loaded.
func (l Neo4jLoader) Load(ctx context.Context, v *Vocabulary) error {
	terms, err := l.fetch(ctx, v.Name())
	if err != nil {
		v.Fail(err)
		return err
	}
	for _, t := range terms {
		v.Add(t)
	}
	v.MarkLoaded()
	return nil
}

func (l Neo4jLoader) fetch(ctx context.Context, vocabulary string) ([]Term, error) {
	session := l.Client.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	out, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, vocabularyTermsQuery, map[string]any{"vocabulary": vocabulary})
		if err != nil {
			return nil, fmt.Errorf("query terms: %w", err)
		}
		var terms []Term
		for res.Next(ctx) {
			t, err := termFromRow(res.Record().AsMap())
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
		if err := res.Err(); err != nil {
			return nil, fmt.Errorf("read terms: %w", err)
		}
		return terms, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s from neo4j: %w", vocabulary, err)
	}
	return out.([]Term), nil
}

// termFromRow converts one row of vocabularyTermsQuery.
func termFromRow(row map[string]any) (Term, error) {
	uri, _ := row["uri"].(string)
	if uri == "" {
		return Term{}, fmt.Errorf("term row without uri")
	}
	label, _ := row["label"].(string)
	code, _ := row["code"].(string)
	obsolete, _ := row["obsolete"].(bool)
	return Term{
		TermRef:  types.TermRef{URI: uri, Label: label, Obsolete: obsolete},
		Code:     code,
		AltCodes: stringList(row["altCodes"]),
		Xrefs:    stringList(row["xrefs"]),
		Parents:  stringList(row["parents"]),
	}, nil
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
