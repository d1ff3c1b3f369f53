// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ontomap/internal/annotator"
	"github.com/pdiddy/ontomap/internal/curation"
	"github.com/pdiddy/ontomap/internal/httputil"
	"github.com/pdiddy/ontomap/internal/ontology"
	"github.com/pdiddy/ontomap/internal/xref"
	"github.com/pdiddy/ontomap/pkg/types"
)

const (
	uriDisease    = "http://purl.obolibrary.org/obo/DOID_4"
	uriAlzheimer  = "http://purl.obolibrary.org/obo/DOID_1234"
	uriAlzheimer2 = "http://purl.obolibrary.org/obo/DOID_10652"
	uriObsolete   = "http://purl.obolibrary.org/obo/DOID_9999"
	uriCataract   = "http://purl.obolibrary.org/obo/DOID_2000"
	uriJuvenile   = "http://purl.obolibrary.org/obo/DOID_1000"
	uriSyndrome   = "http://purl.obolibrary.org/obo/HP_0000001"
)

// stubClient counts calls per normalized phrase and per label request.
type stubClient struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string][]annotator.Candidate
	labels  map[string]string
	fail    bool
}

func newStub() *stubClient {
	return &stubClient{
		calls:   make(map[string]int),
		results: make(map[string][]annotator.Candidate),
		labels:  make(map[string]string),
	}
}

func (s *stubClient) Search(_ context.Context, phrase string) ([]annotator.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[phrase]++
	if s.fail {
		return nil, httputil.Transient(errors.New("503 from annotator"))
	}
	return s.results[phrase], nil
}

func (s *stubClient) FindLabel(_ context.Context, vocab, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["label:"+code]++
	if s.fail {
		return "", httputil.Transient(errors.New("503 from annotator"))
	}
	return s.labels[code], nil
}

func (s *stubClient) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *stubClient) maxCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n = max(n, c)
	}
	return n
}

func pref(uri string) annotator.Candidate {
	return annotator.Candidate{URI: uri, MatchType: annotator.MatchPref}
}

type fixture struct {
	engine *Engine
	stub   *stubClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	doid := ontology.NewVocabulary("DOID")
	doid.Add(ontology.Term{TermRef: types.TermRef{URI: uriDisease, Label: "disease"}})
	doid.Add(ontology.Term{TermRef: types.TermRef{URI: uriAlzheimer, Label: "Alzheimer's disease"}, Parents: []string{uriDisease}})
	doid.Add(ontology.Term{TermRef: types.TermRef{URI: uriAlzheimer2, Label: "Alzheimer disease 2"}, Parents: []string{uriDisease}})
	doid.Add(ontology.Term{TermRef: types.TermRef{URI: uriObsolete, Label: "obsolete dementia", Obsolete: true}})
	doid.Add(ontology.Term{TermRef: types.TermRef{URI: uriCataract, Label: "cataract"}, Parents: []string{uriDisease}})
	doid.Add(ontology.Term{TermRef: types.TermRef{URI: uriJuvenile, Label: "juvenile cataract"}, Parents: []string{uriCataract}})
	doid.MarkLoaded()

	hp := ontology.NewVocabulary("HP")
	hp.Add(ontology.Term{TermRef: types.TermRef{URI: uriSyndrome, Label: "Some syndrome"}})
	hp.MarkLoaded()

	medic := ontology.NewVocabulary("MEDIC")
	medic.Add(ontology.Term{Code: "MESH:D002386", TermRef: types.TermRef{Label: "Cataract"}})
	medic.Add(ontology.Term{
		Code:    "MESH:D999",
		TermRef: types.TermRef{Label: "Cataract, senile variant"},
		Parents: []string{ontology.CodeToURI("MESH:D002386")},
	})
	medic.Add(ontology.Term{Code: "MESH:D777", AltCodes: []string{"OMIM:777777"}, TermRef: types.TermRef{Label: "Lens disorder"}})
	medic.Add(ontology.Term{
		Code:    "MESH:D888",
		TermRef: types.TermRef{Label: "Lens disorder, rare"},
		Parents: []string{ontology.CodeToURI("MESH:D777")},
	})
	medic.MarkLoaded()

	idx := xref.New(map[string][]string{
		"OMIM:104300":  {uriAlzheimer},
		"MSH:D000544":  {uriAlzheimer, uriAlzheimer2},
		"OMIM:555555":  {uriObsolete},
		"MESH:D002386": {uriCataract},
	})
	table := curation.New(map[string][]string{
		"juvenile cataract": {uriJuvenile},
		"OMIM:123456":       {uriSyndrome},
		"OMIM:777777":       {uriJuvenile},
	})

	stub := newStub()
	stub.results["alzheimer disease"] = []annotator.Candidate{pref(uriAlzheimer)}
	stub.results["juvenile cataract"] = []annotator.Candidate{pref(uriJuvenile)}
	stub.results["old dementia"] = []annotator.Candidate{pref(uriObsolete), pref(uriAlzheimer)}
	stub.results["lens trouble"] = []annotator.Candidate{{URI: uriCataract, MatchType: "PARTIAL"}}
	stub.results["some syndrome"] = []annotator.Candidate{{URI: uriSyndrome, MatchType: annotator.MatchSyn}}
	stub.labels["OMIM:600000"] = "Some syndrome"

	svc := annotator.NewService(stub, annotator.WithRetry(3, time.Millisecond))

	engine := New(Config{
		Xref:           idx,
		Curated:        table,
		Gateway:        ontology.NewRegistry(doid, hp),
		Secondary:      medic,
		Annotator:      svc,
		DirectPrefixes: []string{"DOID", "HP"},
	})
	return &fixture{engine: engine, stub: stub}
}

func record(code, keyword string) types.ExternalRecord {
	return types.ExternalRecord{SourceDatabase: "TEST", ExternalCode: code, FreeTextKeyword: keyword, GeneSymbol: "APP"}
}

func TestResolveCascade(t *testing.T) {
	tests := []struct {
		name    string
		rec     types.ExternalRecord
		mapping types.MappingType
		uris    []string
		trail   string
	}{
		{
			name:    "xref exact set",
			rec:     record("OMIM:104300", "Alzheimer disease"),
			mapping: types.MappingXref,
			uris:    []string{uriAlzheimer},
			trail:   "OMIM:104300",
		},
		{
			name:    "xref with prefix alias returns every term",
			rec:     record("MESH:D000544", ""),
			mapping: types.MappingXref,
			uris:    []string{uriAlzheimer2, uriAlzheimer},
			trail:   "MESH:D000544",
		},
		{
			name:    "code naming a target term",
			rec:     record("DOID:1234", ""),
			mapping: types.MappingXref,
			uris:    []string{uriAlzheimer},
			trail:   "DOID:1234",
		},
		{
			name:    "inferred xref through secondary parent",
			rec:     record("MESH:D999", ""),
			mapping: types.MappingInferredXref,
			uris:    []string{uriCataract},
			trail:   "MESH:D999",
		},
		{
			name:    "curated by code",
			rec:     record("OMIM:123456", "whatever"),
			mapping: types.MappingCurated,
			uris:    []string{uriSyndrome},
			trail:   "OMIM:123456",
		},
		{
			name:    "curated by keyword ignores case",
			rec:     record("", "Juvenile  Cataract"),
			mapping: types.MappingCurated,
			uris:    []string{uriJuvenile},
		},
		{
			name:    "inferred curated through parent alt code",
			rec:     record("MESH:D888", ""),
			mapping: types.MappingInferredCurated,
			uris:    []string{uriJuvenile},
			trail:   "MESH:D888",
		},
		{
			name:    "annotator exact",
			rec:     record("", "Alzheimer disease"),
			mapping: types.MappingAnnotator,
			uris:    []string{uriAlzheimer},
			trail:   "Alzheimer disease",
		},
		{
			name:    "annotator modified phrase",
			rec:     record("", "Cataract, juvenile"),
			mapping: types.MappingAnnotatorMod,
			uris:    []string{uriJuvenile},
			trail:   "Cataract, juvenile | juvenile cataract",
		},
		{
			name:    "label retry",
			rec:     record("OMIM:600000", "weird thing"),
			mapping: types.MappingAnnotator,
			uris:    []string{uriSyndrome},
			trail:   "OMIM:600000 | weird thing | Some syndrome",
		},
		{
			name:    "obsolete top candidate is rejected",
			rec:     record("", "old dementia"),
			mapping: types.MappingUnresolved,
			trail:   "old dementia",
		},
		{
			name:    "unaccepted match type is rejected",
			rec:     record("", "lens trouble"),
			mapping: types.MappingUnresolved,
			trail:   "lens trouble",
		},
		{
			name:    "obsolete-only xref falls through",
			rec:     record("OMIM:555555", ""),
			mapping: types.MappingUnresolved,
			trail:   "OMIM:555555",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res := f.engine.Resolve(context.Background(), tt.rec)
			assert.Equal(t, tt.mapping, res.MappingType)
			assert.Equal(t, tt.uris, res.MatchedURIs)
			assert.Equal(t, tt.rec, res.Record)
			if tt.trail != "" {
				assert.Equal(t, tt.trail, res.OriginalPhraseTrail)
			}
			assert.Equal(t, tt.mapping != types.MappingUnresolved, res.Resolved())
		})
	}
}

func TestResolveNeverReturnsObsolete(t *testing.T) {
	f := newFixture(t)
	for _, rec := range []types.ExternalRecord{
		record("OMIM:555555", ""),
		record("DOID:9999", ""),
		record("", "old dementia"),
	} {
		res := f.engine.Resolve(context.Background(), rec)
		assert.NotContains(t, res.MatchedURIs, uriObsolete, rec.Key())
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	recs := []types.ExternalRecord{
		record("OMIM:104300", ""),
		record("", "Cataract, juvenile"),
		record("OMIM:600000", "weird thing"),
		record("", "nothing known"),
	}
	for _, rec := range recs {
		first := f.engine.Resolve(context.Background(), rec)
		second := f.engine.Resolve(context.Background(), rec)
		assert.Equal(t, first, second, rec.Key())
	}
}

func TestAnnotatorCalledOncePerDistinctPhrase(t *testing.T) {
	f := newFixture(t)
	var recs []types.ExternalRecord
	for i := 0; i < 5; i++ {
		recs = append(recs,
			record("", "Alzheimer disease"),
			record("", "ALZHEIMER  DISEASE"),
			record("", "Cataract, juvenile"),
			record("OMIM:600000", "weird thing"),
		)
	}
	_, err := f.engine.ResolveAll(context.Background(), recs, 4)
	require.NoError(t, err)

	assert.Equal(t, 1, f.stub.maxCalls())
	assert.Equal(t, 1, f.stub.count("alzheimer disease"))
	assert.Equal(t, 1, f.stub.count("label:OMIM:600000"))
}

func TestUnavailableAnnotatorDegradesToUnresolved(t *testing.T) {
	f := newFixture(t)
	f.stub.fail = true

	res := f.engine.Resolve(context.Background(), record("", "anything at all"))
	assert.Equal(t, types.MappingUnresolved, res.MappingType)
	assert.Empty(t, res.MatchedURIs)
	assert.Equal(t, 3, f.stub.count("anything at all"))

	// The degraded answer is cached for the run.
	f.engine.Resolve(context.Background(), record("", "Anything at all"))
	assert.Equal(t, 3, f.stub.count("anything at all"))

	// Earlier stages still work without the service.
	res = f.engine.Resolve(context.Background(), record("OMIM:104300", ""))
	assert.Equal(t, types.MappingXref, res.MappingType)
}

func TestResolveWithoutAnnotator(t *testing.T) {
	f := newFixture(t)
	f.engine.ann = nil
	res := f.engine.Resolve(context.Background(), record("", "Alzheimer disease"))
	assert.Equal(t, types.MappingUnresolved, res.MappingType)
	assert.Equal(t, 0, f.stub.count("alzheimer disease"))
}

func TestIgnoreURIs(t *testing.T) {
	f := newFixture(t)
	f.engine.ignore[uriAlzheimer] = true
	res := f.engine.Resolve(context.Background(), record("", "Alzheimer disease"))
	assert.Equal(t, types.MappingUnresolved, res.MappingType)
}

func TestResolveAllKeepsOrder(t *testing.T) {
	f := newFixture(t)
	var recs []types.ExternalRecord
	for i := 0; i < 40; i++ {
		rec := record("OMIM:104300", "")
		if i%3 == 0 {
			rec = record("", "Cataract, juvenile")
		}
		rec.Line = i + 1
		recs = append(recs, rec)
	}
	for _, workers := range []int{0, 1, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			results, err := f.engine.ResolveAll(context.Background(), recs, workers)
			require.NoError(t, err)
			require.Len(t, results, len(recs))
			for i, res := range results {
				assert.Equal(t, i+1, res.Record.Line)
			}
		})
	}
}

func TestResolveAllCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recs := []types.ExternalRecord{record("OMIM:104300", ""), record("", "Alzheimer disease")}
	results, err := f.engine.ResolveAll(ctx, recs, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)

	results, err = f.engine.ResolveAll(ctx, recs, 4)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results, "no placeholder results for records never resolved")
	assert.Equal(t, 0, f.stub.count("alzheimer disease"))
}

// cancellingAnnotator cancels the run on its first search.
type cancellingAnnotator struct {
	Annotator
	cancel context.CancelFunc
}

func (c cancellingAnnotator) Search(ctx context.Context, phrase string) []annotator.Candidate {
	c.cancel()
	return c.Annotator.Search(ctx, phrase)
}

func TestResolveAllKeepsCompletedOnCancel(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			f := newFixture(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			e := *f.engine
			e.ann = cancellingAnnotator{Annotator: f.engine.ann, cancel: cancel}

			recs := []types.ExternalRecord{
				record("OMIM:104300", ""),
				record("", "Alzheimer disease"),
			}
			if workers > 1 {
				// Resolve the xref record before the annotator record starts.
				results, err := e.ResolveAll(ctx, recs[:1], workers)
				require.NoError(t, err)
				require.Len(t, results, 1)
				assert.Equal(t, types.MappingXref, results[0].MappingType)

				results, err = e.ResolveAll(ctx, recs[1:], workers)
				assert.ErrorIs(t, err, context.Canceled)
				assert.Empty(t, results)
				return
			}

			results, err := e.ResolveAll(ctx, append(recs, record("OMIM:104300", "")), workers)
			assert.ErrorIs(t, err, context.Canceled)
			require.Len(t, results, 1)
			assert.Equal(t, types.MappingXref, results[0].MappingType)
			assert.Equal(t, []string{uriAlzheimer}, results[0].MatchedURIs)
		})
	}
}
