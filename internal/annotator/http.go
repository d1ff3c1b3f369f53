// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/pdiddy/ontomap/internal/httputil"
	"github.com/pdiddy/ontomap/internal/ontology"
	"github.com/pdiddy/ontomap/pkg/types"
)

// defaultBaseURL is the BioPortal REST root. Declared as a var so tests can
// substitute an httptest server.
var defaultBaseURL = "https://data.bioontology.org"

// HTTPClient queries a BioPortal-style annotator over REST.
type HTTPClient struct {
	Client     *http.Client
	BaseURL    string
	APIKey     string
	Ontologies []string
	UserAgent  string

	limiter *rate.Limiter
}

// NewHTTPClient builds a client from configuration. A positive
// RequestsPerSecond installs a rate limiter shared by all calls.
func NewHTTPClient(cfg types.AnnotatorConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	c := &HTTPClient{
		Client:     &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(base, "/"),
		APIKey:     cfg.APIKey,
		Ontologies: cfg.Ontologies,
		UserAgent:  cfg.UserAgent,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// Search calls /annotator with the phrase and ranks the annotated classes:
// matches spanning the whole phrase first, then preferred-label matches.
func (c *HTTPClient) Search(ctx context.Context, phrase string) ([]Candidate, error) {
	params := url.Values{
		"text":         {phrase},
		"include":      {"prefLabel,obsolete"},
		"longest_only": {"true"},
	}
	if len(c.Ontologies) > 0 {
		params.Set("ontologies", strings.Join(c.Ontologies, ","))
	}

	var anns []annotation
	if err := c.get(ctx, c.BaseURL+"/annotator?"+params.Encode(), &anns); err != nil {
		return nil, fmt.Errorf("annotating %q: %w", phrase, err)
	}
	return rankCandidates(phrase, anns), nil
}

// FindLabel fetches the preferred label of a class. Unknown classes yield "".
func (c *HTTPClient) FindLabel(ctx context.Context, vocabularyID, code string) (string, error) {
	classID := url.PathEscape(ontology.CodeToURI(code))
	reqURL := fmt.Sprintf("%s/ontologies/%s/classes/%s", c.BaseURL, url.PathEscape(strings.ToUpper(vocabularyID)), classID)

	var cls annotatedClass
	err := c.get(ctx, reqURL, &cls)
	if errors.Is(err, errNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up %s in %s: %w", code, vocabularyID, err)
	}
	return cls.PrefLabel, nil
}

var errNotFound = errors.New("not found")

func (c *HTTPClient) get(ctx context.Context, reqURL string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "apikey token="+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("annotator request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case httputil.IsTransientStatus(resp.StatusCode):
		return httputil.Transient(fmt.Errorf("annotator returned HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("annotator returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing annotator response: %w", err)
	}
	return nil
}

// rankCandidates flattens annotations into candidates, one per class, in
// rank order. The service's own order breaks ties.
func rankCandidates(phrase string, anns []annotation) []Candidate {
	length := utf8.RuneCountInString(phrase)
	seen := make(map[string]int)
	var out []Candidate
	for _, a := range anns {
		id := a.Class.ID
		if id == "" {
			continue
		}
		cand := Candidate{
			URI:      id,
			Label:    a.Class.PrefLabel,
			Obsolete: a.Class.Obsolete,
			Ontology: ontologyAcronym(a.Class.Links.Ontology),
		}
		for _, m := range a.Annotations {
			cand.MatchType = bestMatch(cand.MatchType, m.MatchType)
			if m.From == 1 && m.To == length {
				cand.Whole = true
			}
		}

		if i, dup := seen[id]; dup {
			if cand.Whole {
				out[i].Whole = true
			}
			out[i].MatchType = bestMatch(out[i].MatchType, cand.MatchType)
			continue
		}
		seen[id] = len(out)
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Whole != out[j].Whole {
			return out[i].Whole
		}
		return matchRank(out[i].MatchType) < matchRank(out[j].MatchType)
	})
	return out
}

// bestMatch returns the stronger of two match types; "" means none yet.
func bestMatch(current, next string) string {
	if current == "" || (next != "" && matchRank(next) < matchRank(current)) {
		return next
	}
	return current
}

func matchRank(matchType string) int {
	switch matchType {
	case MatchPref:
		return 0
	case MatchSyn:
		return 1
	default:
		return 2
	}
}

func ontologyAcronym(link string) string {
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}

// BioPortal annotator JSON structures.
type annotation struct {
	Class       annotatedClass `json:"annotatedClass"`
	Annotations []match        `json:"annotations"`
}

type annotatedClass struct {
	ID        string     `json:"@id"`
	PrefLabel string     `json:"prefLabel"`
	Obsolete  bool       `json:"obsolete"`
	Links     classLinks `json:"links"`
}

type classLinks struct {
	Ontology string `json:"ontology"`
}

type match struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	MatchType string `json:"matchType"`
	Text      string `json:"text"`
}
