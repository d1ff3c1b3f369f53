// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package xref

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ontomap/internal/ontology"
)

const export = `format-version: 1.2

[Term]
id: DOID:4
name: disease

[Term]
id: DOID:1234
name: Alzheimer's disease
xref: OMIM:104300
xref: MSH:D000544

[Term]
id: DOID:10652
name: Alzheimer disease variant
xref: MESH:D000544 ! same MeSH code

[Term]
id: DOID:9999
name: retired dementia
is_obsolete: true
xref: OMIM:104300

[Term]
id: DOID:5555
name: not in gateway
xref: OMIM:600000
`

func gateway(t *testing.T) *ontology.Registry {
	t.Helper()
	v := ontology.NewVocabulary("DOID")
	require.NoError(t, ontology.ParseOBO(strings.NewReader(export), func(s ontology.Stanza) error {
		if s.ID == "DOID:5555" {
			return nil
		}
		v.Add(ontology.StanzaTerm(s))
		return nil
	}))
	v.MarkLoaded()
	return ontology.NewRegistry(v)
}

func TestBuildLookup(t *testing.T) {
	idx, err := Build(strings.NewReader(export), gateway(t), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"http://purl.obolibrary.org/obo/DOID_1234"}, idx.Lookup("OMIM:104300"))
	assert.Equal(t, []string{
		"http://purl.obolibrary.org/obo/DOID_10652",
		"http://purl.obolibrary.org/obo/DOID_1234",
	}, idx.Lookup("MESH:D000544"))
	assert.Equal(t, idx.Lookup("MESH:D000544"), idx.Lookup("msh:D000544"))
	assert.Empty(t, idx.Lookup("OMIM:600000"))
	assert.Empty(t, idx.Lookup("OMIM:000000"))

	st := idx.Stats()
	assert.Equal(t, 5, st.Terms)
	assert.Equal(t, 2, st.Indexed)
	assert.Equal(t, 1, st.Obsolete)
	assert.Equal(t, 1, st.Unknown)
	assert.Equal(t, 2, st.Codes)
	assert.Equal(t, []string{"MESH:D000544", "OMIM:104300"}, idx.Codes())
}

func TestBuildNeverIndexesObsolete(t *testing.T) {
	gw := gateway(t)
	idx, err := Build(strings.NewReader(export), gw, Options{})
	require.NoError(t, err)
	for _, code := range idx.Codes() {
		for _, uri := range idx.Lookup(code) {
			assert.False(t, gw.IsObsolete(uri), uri)
		}
	}
}

func TestBuildWithoutGateway(t *testing.T) {
	idx, err := Build(strings.NewReader(export), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://purl.obolibrary.org/obo/DOID_5555"}, idx.Lookup("OMIM:600000"))
	assert.Equal(t, []string{"http://purl.obolibrary.org/obo/DOID_1234"}, idx.Lookup("OMIM:104300"))
}

func TestBuildPrefixFilter(t *testing.T) {
	idx, err := Build(strings.NewReader(export), gateway(t), Options{Prefixes: []string{"MIM"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"OMIM:104300"}, idx.Codes())
}

func TestLookupReturnsCopy(t *testing.T) {
	idx := New(map[string][]string{"OMIM:104300": {"http://purl.obolibrary.org/obo/DOID_1234"}})
	got := idx.Lookup("OMIM:104300")
	got[0] = "mutated"
	assert.Equal(t, []string{"http://purl.obolibrary.org/obo/DOID_1234"}, idx.Lookup("OMIM:104300"))
}

func TestNewMergesAliases(t *testing.T) {
	idx := New(map[string][]string{
		"MSH:D1":  {"u2", "u1"},
		"MESH:D1": {"u1", "u3"},
	})
	assert.Equal(t, []string{"u1", "u2", "u3"}, idx.Lookup("MESH:D1"))
	assert.Equal(t, 1, idx.Len())
}

func TestBuildFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doid.obo")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o644))
	idx, err := BuildFile(path, gateway(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	_, err = BuildFile(filepath.Join(t.TempDir(), "missing.obo"), nil, Options{})
	assert.Error(t, err)
}
