// Package contentfilter is the local banned-word check applied to listing
// text before it is stored.
package contentfilter

import (
	"strings"

	"campusmarket/internal/domain"
)

// DefaultWords is the built-in banned list.
var DefaultWords = []string{"spam", "scam", "fake", "counterfeit"}

type Filter struct {
	words []string
}

// New builds a filter over DefaultWords plus extra. Matching is a
// case-insensitive substring match.
func New(extra ...string) *Filter {
	seen := map[string]bool{}
	var words []string
	for _, w := range append(append([]string{}, DefaultWords...), extra...) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return &Filter{words: words}
}

// Words returns the normalized banned list.
func (f *Filter) Words() []string {
	return append([]string{}, f.words...)
}

func (f *Filter) Contains(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range f.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Check returns a content-rejected error naming the first offending field.
// fields alternates name, value.
func (f *Filter) Check(fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if f.Contains(fields[i+1]) {
			return domain.Errorf(domain.ErrContentRejected, "%s contains inappropriate content", fields[i])
		}
	}
	return nil
}
