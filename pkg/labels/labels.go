// Package labels parses label lists for import and matches labels against search queries.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/cases"
)

// ParseList reads a label file. Each line holds one label or a comma-separated list of them.
func ParseList(r io.Reader) ([]string, error) {
	out := []string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		for _, l := range strings.Split(sc.Text(), ",") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return out, nil
}

// ParseLines splits pasted text into one label per line.
func ParseLines(s string) []string {
	out := []string{}
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// NewNames returns the candidates not already in existing, compared without
// regard to case, with duplicates removed. The first spelling seen wins.
func NewNames(existing []string, candidates []string) []string {
	fold := cases.Fold()
	seen := map[string]bool{}
	for _, e := range existing {
		seen[fold.String(e)] = true
	}

	out := []string{}
	for _, c := range candidates {
		k := fold.String(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

// Equal reports whether two label names are the same ignoring case.
func Equal(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}

// Variants returns the searchable spellings of a name: lowercase, full
// pinyin, and pinyin initials. Han characters without a known reading are kept as is.
func Variants(name string) []string {
	a := pinyin.NewArgs()
	var full, initials strings.Builder
	for _, r := range name {
		if unicode.Is(unicode.Han, r) {
			if ps := pinyin.SinglePinyin(r, a); len(ps) > 0 && ps[0] != "" {
				full.WriteString(ps[0])
				initials.WriteByte(ps[0][0])
				continue
			}
		}
		lr := unicode.ToLower(r)
		full.WriteRune(lr)
		if unicode.IsLetter(r) {
			initials.WriteRune(lr)
		}
	}

	out := []string{strings.ToLower(name)}
	for _, v := range []string{full.String(), initials.String()} {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// Matches reports whether query is found in any spelling of name. A blank query matches everything.
func Matches(name string, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, v := range Variants(name) {
		if strings.Contains(v, q) {
			return true
		}
	}
	return false
}
