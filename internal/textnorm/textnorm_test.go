// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims and lowercases", "  Juvenile Cataract ", "juvenile cataract"},
		{"collapses whitespace", "Alzheimer   disease\t3", "alzheimer disease 3"},
		{"strips double quotes", `"Parkinson disease"`, "parkinson disease"},
		{"strips single quotes", "'Parkinson disease'", "parkinson disease"},
		{"strips OMIM braces", "{Alzheimer disease, susceptibility to}", "alzheimer disease, susceptibility to"},
		{"strips OMIM brackets", "[Blood group, Kell]", "blood group, kell"},
		{"strips provisional marker", "?Cataract 5", "cataract 5"},
		{"full-width characters fold", "ＡＢＣ syndrome", "abc syndrome"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestModify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"reorders clauses", "Cataract, juvenile", "juvenile cataract"},
		{"drops stop word and trailing number", "Alzheimer disease, type 3", "alzheimer disease"},
		{"drops trailing digit token", "Cataract 5", "cataract"},
		{"drops several trailing digit tokens", "Deafness 2 1A", "deafness"},
		{"keeps long tokens with digits", "Spinocerebellar ataxia scA10xyz", ""},
		{"three clauses reversed", "Diabetes, insulin-dependent, 5", "insulin-dependent diabetes"},
		{"unchanged phrase gives empty", "juvenile cataract", ""},
		{"only stop words gives empty", "type 2", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Modify(tt.input, nil); got != tt.want {
				t.Errorf("Modify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestModifyCustomStopWords(t *testing.T) {
	got := Modify("Epilepsy, familial form", []string{"form"})
	if got != "familial epilepsy" {
		t.Errorf("Modify() = %q, want %q", got, "familial epilepsy")
	}
}

func TestKey(t *testing.T) {
	if got := Key("  OMIM:104300 "); got != "omim:104300" {
		t.Errorf("Key() = %q", got)
	}
	if got := Key("Juvenile  Cataract"); got != "juvenile cataract" {
		t.Errorf("Key() = %q", got)
	}
}

func TestTrail(t *testing.T) {
	var tr Trail
	tr.Add("OMIM:104300")
	tr.Add("alzheimer disease")
	tr.Add("")
	tr.Add("alzheimer disease")
	tr.Add("alzheimer")
	want := "OMIM:104300 | alzheimer disease | alzheimer"
	if got := tr.String(); got != want {
		t.Errorf("Trail = %q, want %q", got, want)
	}
}
