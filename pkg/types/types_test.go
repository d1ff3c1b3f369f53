// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMappingTypeValid(t *testing.T) {
	for _, mt := range MappingTypes {
		assert.True(t, mt.Valid(), mt)
	}
	assert.False(t, MappingType("xref").Valid())
	assert.False(t, MappingType("").Valid())
}

func TestURISet(t *testing.T) {
	got := URISet([]string{"b", "a", ""}, []string{"a", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Nil(t, URISet())
}

func TestRecordKey(t *testing.T) {
	r := ExternalRecord{SourceDatabase: "OMIM", GeneSymbol: "APP", ExternalCode: "OMIM:104300"}
	assert.Equal(t, "OMIM:APP:OMIM:104300", r.Key())
	assert.True(t, r.HasDesignation())

	r = ExternalRecord{SourceDatabase: "GWAS", GeneSymbol: "APOE", FreeTextKeyword: "late onset"}
	assert.Equal(t, "GWAS:APOE:late onset", r.Key())
	assert.False(t, ExternalRecord{FreeTextKeyword: "  "}.HasDesignation())
}
