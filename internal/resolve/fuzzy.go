// Package resolve matches loosely typed names (resources, subcommands)
// against the set of known ones.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrEmptyItems = errors.New("no candidates to match against")
)

// AmbiguousError indicates several candidates matched equally well.
type AmbiguousError struct {
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous name %q, candidates: %s", e.Query, strings.Join(e.Candidates, ", "))
}

// NotFoundError carries the closest candidates for a did-you-mean hint.
type NotFoundError struct {
	Query       string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown name %q", e.Query)
	}
	return fmt.Sprintf("unknown name %q, did you mean %s?", e.Query, strings.Join(e.Suggestions, " or "))
}

type lowerSource []string

func (s lowerSource) String(i int) string { return strings.ToLower(s[i]) }
func (s lowerSource) Len() int            { return len(s) }

// Name returns the candidate query refers to.
//
// An exact case-insensitive match wins. Otherwise the best fuzzy match is
// returned, unless the top two tie (*AmbiguousError) or nothing matches
// (*NotFoundError).
func Name(query string, candidates []string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if len(candidates) == 0 {
		return "", ErrEmptyItems
	}

	for _, c := range candidates {
		if strings.EqualFold(c, query) {
			return c, nil
		}
	}

	results := fuzzy.FindFrom(strings.ToLower(query), lowerSource(candidates))
	if len(results) == 0 {
		return "", &NotFoundError{Query: query}
	}
	if len(results) > 1 && results[0].Score == results[1].Score {
		return "", &AmbiguousError{Query: query, Candidates: names(candidates, results, 5)}
	}
	return candidates[results[0].Index], nil
}

// Suggest returns up to limit candidates ranked by fuzzy score, best first.
func Suggest(query string, candidates []string, limit int) []string {
	query = strings.TrimSpace(query)
	if query == "" || len(candidates) == 0 || limit <= 0 {
		return nil
	}
	return names(candidates, fuzzy.FindFrom(strings.ToLower(query), lowerSource(candidates)), limit)
}

func names(candidates []string, results fuzzy.Matches, limit int) []string {
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, candidates[r.Index])
	}
	return out
}
