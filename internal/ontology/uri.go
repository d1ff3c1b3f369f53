// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ontology

import "strings"

// OBOBase is the PURL prefix shared by OBO Foundry term URIs.
const OBOBase = "http://purl.obolibrary.org/obo/"

// DefaultPrefixAliases maps alternate code prefixes to the canonical ones
// used as index keys.
var DefaultPrefixAliases = map[string]string{
	"MSH":    "MESH",
	"MESH":   "MESH",
	"MIM":    "OMIM",
	"OMIM":   "OMIM",
	"OMIMPS": "OMIMPS",
	"DO":     "DOID",
}

// NormalizeCode canonicalizes a code: surrounding whitespace is trimmed and
// the prefix is upper-cased and mapped through aliases (DefaultPrefixAliases
// when nil). Codes without a prefix are returned trimmed.
func NormalizeCode(code string, aliases map[string]string) string {
	code = strings.TrimSpace(code)
	prefix, local, ok := strings.Cut(code, ":")
	if !ok || prefix == "" || local == "" {
		return code
	}
	if aliases == nil {
		aliases = DefaultPrefixAliases
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if canonical, ok := aliases[prefix]; ok {
		prefix = canonical
	}
	return prefix + ":" + strings.TrimSpace(local)
}

// CodePrefix returns the prefix of a code ("OMIM" for "OMIM:104300").
func CodePrefix(code string) string {
	prefix, _, ok := strings.Cut(code, ":")
	if !ok {
		return ""
	}
	return prefix
}

// CodeToURI converts "DOID:1234" to the OBO PURL for that term. Values that
// are already URIs are returned unchanged.
func CodeToURI(code string) string {
	code = strings.TrimSpace(code)
	if strings.HasPrefix(code, "http://") || strings.HasPrefix(code, "https://") {
		return code
	}
	prefix, local, ok := strings.Cut(code, ":")
	if !ok {
		return OBOBase + code
	}
	return OBOBase + prefix + "_" + local
}

// URIToCode converts an OBO PURL back to its "PREFIX:local" code. Non-OBO
// URIs are returned unchanged.
func URIToCode(uri string) string {
	local, ok := strings.CutPrefix(uri, OBOBase)
	if !ok {
		return uri
	}
	prefix, id, ok := strings.Cut(local, "_")
	if !ok {
		return local
	}
	return prefix + ":" + id
}
