package woocommerce

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

// NearestCategory maps a free-form category name (for example Amazon's
// breadcrumb leaf) onto a store category id. Matching is case-insensitive:
// an exact name wins, then containment in either direction, then the
// largest number of shared words.
func (c *Client) NearestCategory(ctx context.Context, name string) (int, bool) {
	if strings.TrimSpace(name) == "" {
		return 0, false
	}
	categories, err := c.Categories(ctx)
	if err != nil {
		slog.Warn("unable to load store categories", "error", err)
		return 0, false
	}
	return nearest(categories, name)
}

func nearest(categories []Category, name string) (int, bool) {
	target := normalize(name)
	if target == "" {
		return 0, false
	}

	for _, cat := range categories {
		if normalize(cat.Name) == target {
			return cat.ID, true
		}
	}

	for _, cat := range categories {
		candidate := normalize(cat.Name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, target) || strings.Contains(target, candidate) {
			return cat.ID, true
		}
	}

	targetWords := words(target)
	bestID, bestScore := 0, 0
	for _, cat := range categories {
		score := 0
		for _, w := range strings.Fields(normalize(cat.Name)) {
			if _, ok := targetWords[w]; ok {
				score++
			}
		}
		if score > bestScore {
			bestID, bestScore = cat.ID, score
		}
	}
	return bestID, bestScore > 0
}

// normalize lowercases s and keeps only letters and digits, collapsing
// everything else (emoji, punctuation, "&") to single spaces.
func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

var stopWords = map[string]struct{}{"and": {}, "the": {}, "for": {}, "of": {}}

func words(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.Fields(s) {
		if _, stop := stopWords[w]; !stop {
			out[w] = struct{}{}
		}
	}
	return out
}
