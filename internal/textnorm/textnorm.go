// Package textnorm implements the key-derivation text rules shared by
// every Index variant (spec §4.7): Unicode default case folding and
// trimming, NUL-byte multi-part key joins, and stopword-list loading,
// following the corpus's golang.org/x/text/unicode/norm normalization
// pattern (see the slug packages in the example corpus) generalized from
// NFKD-and-strip to cases.Fold's default case folding.
package textnorm

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize lowercases s via Unicode default case folding and trims
// surrounding whitespace, the rule spec §4.7 requires of every textual
// key component ("lowercased and trimmed", "deterministic across
// platforms").
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = folder.String(s)
	return strings.TrimSpace(s)
}

// Join concatenates parts with a single NUL byte delimiter, spec §3's
// multi-part key rule.
func Join(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// Stopwords is a lowercased, trimmed stopword set loaded from a
// user-supplied file (config.Config.StopwordsPath), one word per line,
// blank lines and lines starting with '#' ignored.
type Stopwords struct {
	set map[string]struct{}
}

// LoadStopwords reads path and returns a normalized Stopwords set.
func LoadStopwords(path string) (*Stopwords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("textnorm: open stopwords %s: %w", path, err)
	}
	defer f.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[Normalize(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("textnorm: scan stopwords %s: %w", path, err)
	}
	return &Stopwords{set: set}, nil
}

// Empty returns a Stopwords set containing nothing, for configs that
// omit stopwords_path.
func Empty() *Stopwords { return &Stopwords{set: map[string]struct{}{}} }

// Contains reports whether word (already normalized) is a stopword.
func (s *Stopwords) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[word]
	return ok
}
