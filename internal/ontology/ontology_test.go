// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ontology

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ontomap/pkg/types"
)

const sampleOBO = `format-version: 1.2
ontology: doid

[Term]
id: DOID:4
name: disease

[Term]
id: DOID:1234
name: Alzheimer's disease
is_a: DOID:4 ! disease
xref: OMIM:104300
xref: MSH:D000544 {source="MESH"}

[Term]
id: DOID:9999
name: obsolete dementia
is_obsolete: true
replaced_by: DOID:1234
xref: OMIM:104300

[Typedef]
id: part_of
name: part of
`

func TestCodeURIRoundTrip(t *testing.T) {
	tests := []struct {
		code string
		uri  string
	}{
		{"DOID:1234", "http://purl.obolibrary.org/obo/DOID_1234"},
		{"HP:0000001", "http://purl.obolibrary.org/obo/HP_0000001"},
		{"MESH:D000544", "http://purl.obolibrary.org/obo/MESH_D000544"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.uri, CodeToURI(tt.code))
		assert.Equal(t, tt.code, URIToCode(tt.uri))
	}
	assert.Equal(t, "http://example.org/x", CodeToURI("http://example.org/x"))
	assert.Equal(t, "http://example.org/x", URIToCode("http://example.org/x"))
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"MSH:D000544", "MESH:D000544"},
		{"msh:D000544", "MESH:D000544"},
		{" MIM:104300 ", "OMIM:104300"},
		{"OMIM:104300", "OMIM:104300"},
		{"DOID:4", "DOID:4"},
		{"nocode", "nocode"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCode(tt.in, nil), tt.in)
	}
	assert.Equal(t, "X:1", NormalizeCode("Y:1", map[string]string{"Y": "X"}))
	assert.Equal(t, "OMIM", CodePrefix("OMIM:104300"))
	assert.Equal(t, "", CodePrefix("104300"))
}

func TestParseOBO(t *testing.T) {
	var stanzas []Stanza
	err := ParseOBO(strings.NewReader(sampleOBO), func(s Stanza) error {
		stanzas = append(stanzas, s)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, stanzas, 3)

	ad := stanzas[1]
	assert.Equal(t, "DOID:1234", ad.ID)
	assert.Equal(t, "Alzheimer's disease", ad.Name)
	assert.Equal(t, []string{"DOID:4"}, ad.IsA)
	assert.Equal(t, []string{"OMIM:104300", "MSH:D000544"}, ad.Xrefs)
	assert.False(t, ad.Obsolete)

	obs := stanzas[2]
	assert.True(t, obs.Obsolete)
	assert.Equal(t, "DOID:1234", obs.ReplacedBy)
}

func TestParseOBOCallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ParseOBO(strings.NewReader(sampleOBO), func(Stanza) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func loadedVocab(t *testing.T) *Vocabulary {
	t.Helper()
	v := NewVocabulary("DOID")
	require.NoError(t, ParseOBO(strings.NewReader(sampleOBO), func(s Stanza) error {
		v.Add(StanzaTerm(s))
		return nil
	}))
	v.MarkLoaded()
	return v
}

func TestVocabularyNotLoadedAnswersNothing(t *testing.T) {
	v := NewVocabulary("DOID")
	v.Add(Term{TermRef: types.TermRef{Label: "disease"}, Code: "DOID:4"})

	_, ok := v.Term(CodeToURI("DOID:4"))
	assert.False(t, ok)
	assert.Empty(t, v.FindByLabel("disease"))
	assert.False(t, v.IsLoaded())

	v.MarkLoaded()
	term, ok := v.Term(CodeToURI("DOID:4"))
	require.True(t, ok)
	assert.Equal(t, "disease", term.Label)
}

func TestVocabularyQueries(t *testing.T) {
	v := loadedVocab(t)
	adURI := CodeToURI("DOID:1234")

	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []string{CodeToURI("DOID:4")}, v.Parents(adURI))
	assert.True(t, v.IsObsolete(CodeToURI("DOID:9999")))
	assert.False(t, v.IsObsolete(adURI))
	assert.False(t, v.IsObsolete("http://unknown"))

	found := v.FindByLabel("ALZHEIMER'S DISEASE")
	require.Len(t, found, 1)
	assert.Equal(t, adURI, found[0].URI)

	assert.Equal(t, []string{"OMIM:104300", "MSH:D000544"}, v.Xrefs(adURI))
	assert.Equal(t, []string{"DOID:1234"}, v.Codes(adURI))
}

func TestVocabularyCodeTermAltCodes(t *testing.T) {
	v := NewVocabulary("MEDIC")
	v.Add(Term{
		TermRef:  types.TermRef{Label: "Alzheimer Disease"},
		Code:     "MESH:D000544",
		AltCodes: []string{"DO:DOID:10652", "MIM:104300"},
		Parents:  []string{CodeToURI("MESH:D003704")},
	})
	v.MarkLoaded()

	term, ok := v.CodeTerm("OMIM:104300")
	require.True(t, ok)
	assert.Equal(t, CodeToURI("MESH:D000544"), term.URI)

	_, ok = v.CodeTerm("MSH:D000544")
	assert.True(t, ok)

	assert.Equal(t, []string{"MESH:D000544", "DOID:DOID:10652", "OMIM:104300"}, v.Codes(term.URI))
}

func TestVocabularyAddReplacesLabel(t *testing.T) {
	v := NewVocabulary("DOID")
	v.Add(Term{TermRef: types.TermRef{Label: "old name"}, Code: "DOID:1"})
	v.Add(Term{TermRef: types.TermRef{Label: "new name"}, Code: "DOID:1"})
	v.MarkLoaded()
	assert.Empty(t, v.FindByLabel("old name"))
	assert.Len(t, v.FindByLabel("new name"), 1)
}

func TestRegistry(t *testing.T) {
	doid := loadedVocab(t)
	hp := NewVocabulary("HP")
	hp.Add(Term{TermRef: types.TermRef{Label: "Disease"}, Code: "HP:0000001"})

	reg := NewRegistry(doid, hp)
	assert.False(t, reg.IsLoaded())
	hp.MarkLoaded()
	assert.True(t, reg.IsLoaded())

	found := reg.FindByLabel("disease")
	require.Len(t, found, 2)
	assert.Equal(t, CodeToURI("DOID:4"), found[0].URI)
	assert.Equal(t, CodeToURI("HP:0000001"), found[1].URI)

	assert.Same(t, hp, reg.Vocabulary("hp"))
	assert.Nil(t, reg.Vocabulary("MP"))
	assert.Equal(t, []string{CodeToURI("DOID:4")}, reg.Parents(CodeToURI("DOID:1234")))
	assert.True(t, reg.IsObsolete(CodeToURI("DOID:9999")))
}

func TestOBOFileLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doid.obo")
	require.NoError(t, os.WriteFile(path, []byte(sampleOBO), 0o644))

	v := NewVocabulary("DOID")
	require.NoError(t, OBOFile{Path: path}.Load(context.Background(), v))
	assert.True(t, v.IsLoaded())
	assert.Equal(t, 3, v.Len())
}

func TestOBOFileLoadMissingRecordsFailure(t *testing.T) {
	v := NewVocabulary("DOID")
	err := OBOFile{Path: filepath.Join(t.TempDir(), "missing.obo")}.Load(context.Background(), v)
	require.Error(t, err)
	assert.Error(t, v.Err())
	assert.False(t, v.IsLoaded())

	err = WaitLoaded(context.Background(), NewRegistry(v), time.Millisecond)
	assert.Error(t, err)
}

func TestLoadOBOFileInBackground(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doid.obo")
	require.NoError(t, os.WriteFile(path, []byte(sampleOBO), 0o644))

	v := LoadOBOFile(context.Background(), "DOID", path)
	require.NoError(t, WaitLoaded(context.Background(), NewRegistry(v), time.Millisecond))
	assert.Equal(t, "DOID", v.Name())
	assert.Equal(t, 3, v.Len())
}

func TestWaitLoaded(t *testing.T) {
	v := NewVocabulary("DOID")
	go func() {
		time.Sleep(10 * time.Millisecond)
		v.MarkLoaded()
	}()
	require.NoError(t, WaitLoaded(context.Background(), NewRegistry(v), time.Millisecond))
}

func TestWaitLoadedTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := WaitLoaded(ctx, NewRegistry(NewVocabulary("DOID")), time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTermFromRow(t *testing.T) {
	term, err := termFromRow(map[string]any{
		"uri":      "http://purl.obolibrary.org/obo/DOID_1234",
		"label":    "Alzheimer's disease",
		"code":     "DOID:1234",
		"obsolete": false,
		"altCodes": []any{},
		"xrefs":    []any{"OMIM:104300", nil},
		"parents":  []any{"http://purl.obolibrary.org/obo/DOID_4"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alzheimer's disease", term.Label)
	assert.Equal(t, []string{"OMIM:104300"}, term.Xrefs)
	assert.Equal(t, []string{"http://purl.obolibrary.org/obo/DOID_4"}, term.Parents)

	_, err = termFromRow(map[string]any{"label": "no uri"})
	assert.Error(t, err)
}
