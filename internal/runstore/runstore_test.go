// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runstore

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ontomap/internal/issues"
	"github.com/pdiddy/ontomap/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "ontomap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(code, keyword string, mt types.MappingType, uris ...string) types.ResolutionResult {
	return types.ResolutionResult{
		Record: types.ExternalRecord{
			SourceDatabase:  "OMIM",
			ExternalCode:    code,
			FreeTextKeyword: keyword,
			GeneSymbol:      "APP",
			SubjectGeneID:   351,
			EvidenceCode:    "TAS",
			SourceFile:      "morbidmap.txt",
			Line:            7,
		},
		MatchedURIs:         uris,
		MappingType:         mt,
		OriginalPhraseTrail: code,
	}
}

func seedRun(t *testing.T, s *Store) Run {
	t.Helper()
	ctx := context.Background()
	run, err := s.BeginRun(ctx, "OMIM", "morbidmap.txt")
	require.NoError(t, err)
	require.NoError(t, s.SaveResults(ctx, run.ID, []types.ResolutionResult{
		result("OMIM:104300", "Alzheimer disease", types.MappingXref, "http://purl.obolibrary.org/obo/DOID_10652"),
		result("", "Cataract, juvenile", types.MappingAnnotatorMod, "http://purl.obolibrary.org/obo/DOID_1000"),
		result("OMIM:600000", "weird thing", types.MappingUnresolved),
	}))
	require.NoError(t, s.SaveResult(ctx, run.ID, result("", "Blood group, Kell", types.MappingUnresolved)))
	require.NoError(t, s.SaveIssues(ctx, run.ID, []issues.Issue{
		{Kind: issues.Structural, Source: "OMIM", Line: 6, Message: "too short"},
		{Kind: issues.Ambiguity, Source: "OMIM", Line: 5, Key: "OMIM:KEL:", Message: "human KEL"},
	}))
	return run
}

func TestRunLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	run := seedRun(t, s)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, StatusRunning, run.Status)

	require.NoError(t, s.FinishRun(ctx, run.ID, StatusDone))
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	assert.Equal(t, "morbidmap.txt", got.Input)
	assert.True(t, got.StartedAt.Equal(fixed))
	assert.True(t, got.FinishedAt.Equal(fixed))

	assert.ErrorIs(t, s.FinishRun(ctx, "nope", StatusDone), ErrRunNotFound)
	_, err = s.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestLatestRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_, err = s.BeginRun(ctx, "OMIM", "a")
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(time.Hour) }
	second, err := s.BeginRun(ctx, "CTD", "b")
	require.NoError(t, err)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "CTD", runs[0].Source)
}

func TestResultsQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	run := seedRun(t, s)

	all, err := s.Results(ctx, QueryOptions{RunID: run.ID})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "OMIM:104300", all[0].ExternalCode)
	assert.Equal(t, []string{"http://purl.obolibrary.org/obo/DOID_10652"}, all[0].URIs)
	assert.Equal(t, 351, all[0].GeneID)
	assert.Equal(t, 7, all[0].Line)

	unresolved, err := s.Unresolved(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, unresolved, 2)
	assert.Equal(t, "weird thing", unresolved[0].Keyword)
	assert.Empty(t, unresolved[0].URIs)

	found, err := s.Results(ctx, QueryOptions{RunID: run.ID, Text: "CATARACT"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, types.MappingAnnotatorMod, found[0].MappingType)

	limited, err := s.Results(ctx, QueryOptions{RunID: run.ID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSummary(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	run := seedRun(t, s)

	sum, err := s.Summary(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Total())
	assert.Equal(t, 2, sum.Resolved())
	assert.Equal(t, 2, sum.ByType[types.MappingUnresolved])
	assert.Equal(t, map[issues.Kind]int{issues.Structural: 1, issues.Ambiguity: 1}, sum.Issues)

	_, err = s.Summary(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	run := seedRun(t, s)

	var buf bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, run.ID, &buf))
	var exp Export
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &exp))
	assert.Equal(t, run.ID, exp.Summary.Run.ID)
	assert.Len(t, exp.Results, 4)
	assert.Len(t, exp.Issues, 2)
	assert.Equal(t, "human KEL", exp.Issues[1].Message)

	buf.Reset()
	require.NoError(t, s.ExportJSON(ctx, run.ID, &buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "results")
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontomap.db")
	s, err := Open(path)
	require.NoError(t, err)
	run := seedRun(t, s)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.Results(context.Background(), QueryOptions{RunID: run.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
