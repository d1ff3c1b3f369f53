// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ontology

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/ontomap/pkg/types"
)

// Stanza is one [Term] block of an OBO file.
type Stanza struct {
	ID         string
	Name       string
	IsA        []string
	Xrefs      []string
	AltIDs     []string
	Obsolete   bool
	ReplacedBy string
	Line       int
}

// URI returns the term URI for the stanza id.
func (s Stanza) URI() string { return CodeToURI(s.ID) }

const maxOBOLine = 1 << 20

// ParseOBO streams [Term] stanzas from r and calls fn for each. Other
// stanza types ([Typedef], [Instance]) and the header are skipped. An error
// returned by fn stops the scan and is returned.
func ParseOBO(r io.Reader, fn func(Stanza) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxOBOLine)

	var cur *Stanza
	flush := func() error {
		if cur == nil || cur.ID == "" {
			cur = nil
			return nil
		}
		s := *cur
		cur = nil
		return fn(s)
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if err := flush(); err != nil {
				return err
			}
			if line == "[Term]" {
				cur = &Stanza{Line: lineNo}
			}
			continue
		}
		if cur == nil {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "id":
			cur.ID = value
		case "name":
			cur.Name = value
		case "is_a":
			if id := firstToken(value); id != "" {
				cur.IsA = append(cur.IsA, id)
			}
		case "xref":
			if x := firstToken(value); x != "" {
				cur.Xrefs = append(cur.Xrefs, x)
			}
		case "alt_id":
			if id := firstToken(value); id != "" {
				cur.AltIDs = append(cur.AltIDs, id)
			}
		case "is_obsolete":
			cur.Obsolete = strings.EqualFold(value, "true")
		case "replaced_by":
			cur.ReplacedBy = firstToken(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading OBO at line %d: %w", lineNo, err)
	}
	return flush()
}

// firstToken returns a value without trailing "! comment", "{qualifiers}"
// or quoted description.
func firstToken(value string) string {
	if i := strings.IndexAny(value, "!{\""); i >= 0 {
		value = value[:i]
	}
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// StanzaTerm converts a stanza into a vocabulary term.
func StanzaTerm(s Stanza) Term {
	parents := make([]string, 0, len(s.IsA))
	for _, p := range s.IsA {
		parents = append(parents, CodeToURI(p))
	}
	return Term{
		TermRef:  TermRefFor(s),
		Code:     s.ID,
		AltCodes: s.AltIDs,
		Parents:  parents,
		Xrefs:    s.Xrefs,
	}
}

// TermRefFor returns the term reference a stanza describes.
func TermRefFor(s Stanza) types.TermRef {
	return types.TermRef{URI: s.URI(), Label: s.Name, Obsolete: s.Obsolete}
}

// Loader fills a vocabulary from some backing store.
type Loader interface {
	Load(ctx context.Context, v *Vocabulary) error
}

// OBOFile loads a vocabulary from an OBO file on disk.
type OBOFile struct {
	Path string
}

// Load parses the file into v and marks it loaded. A failure is also
// recorded on v so WaitLoaded can report it.
func (f OBOFile) Load(ctx context.Context, v *Vocabulary) error {
	err := f.load(ctx, v)
	if err != nil {
		v.Fail(err)
		return err
	}
	v.MarkLoaded()
	return nil
}

func (f OBOFile) load(ctx context.Context, v *Vocabulary) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Path, err)
	}
	defer file.Close()

	return ParseOBO(file, func(s Stanza) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		v.Add(StanzaTerm(s))
		return nil
	})
}

// LoadAsync runs l for v in a background goroutine. Progress is observed
// through v.IsLoaded and v.Err, usually via WaitLoaded.
func LoadAsync(ctx context.Context, l Loader, v *Vocabulary) {
	go func() {
		_ = l.Load(ctx, v)
	}()
}

// LoadOBOFile starts loading the OBO file at path into a new vocabulary and
// returns it immediately.
func LoadOBOFile(ctx context.Context, name, path string) *Vocabulary {
	v := NewVocabulary(name)
	LoadAsync(ctx, OBOFile{Path: path}, v)
	return v
}
