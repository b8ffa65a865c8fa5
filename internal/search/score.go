package search

import (
	"strings"
	"time"
)

// Document is the indexed view of an item used for scoring.
type Document struct {
	TitleN    string
	TagsN     []string
	NGrams    []string
	Campus    string
	Building  string
	Lat, Lng  *float64
	CreatedAt time.Time
}

// Query describes what the searcher typed and where they are.
type Query struct {
	NGrams   []string
	Campus   string
	Building string
	Lat, Lng *float64
}

// NewQuery indexes the search text.
func NewQuery(text string) Query {
	return Query{NGrams: NGrams(text, DefaultN)}
}

// Score ranks doc against q. Zero means no n-gram overlap and no location
// boost.
func Score(doc Document, q Query, now time.Time) float64 {
	shared := SharedNGrams(doc, q)

	score := 0.0
	if len(shared) > 0 {
		score += float64(len(shared)) * 2
		if containsAny(doc.TitleN, shared) {
			score += 3
		}
		for _, tag := range doc.TagsN {
			if containsAny(tag, shared) {
				score += 2
				break
			}
		}
	}

	if q.Campus != "" && doc.Campus == q.Campus {
		score += 5
		if q.Building != "" && doc.Building == q.Building {
			score += 3
		}
	}

	ageDays := int(now.Sub(doc.CreatedAt).Hours() / 24)
	switch {
	case ageDays > 30:
		score *= 0.7
	case ageDays > 7:
		score *= 0.9
	}

	if q.Lat != nil && q.Lng != nil && doc.Lat != nil && doc.Lng != nil {
		d := Haversine(*q.Lat, *q.Lng, *doc.Lat, *doc.Lng)
		switch {
		case d < 0.5:
			score += 4
		case d < 1:
			score += 2
		case d < 2:
			score += 1
		}
	}

	return score
}

// SharedNGrams returns the query n-grams present in doc, in query order.
func SharedNGrams(doc Document, q Query) []string {
	docGrams := make(map[string]struct{}, len(doc.NGrams))
	for _, g := range doc.NGrams {
		docGrams[g] = struct{}{}
	}

	var shared []string
	for _, g := range q.NGrams {
		if _, ok := docGrams[g]; ok {
			shared = append(shared, g)
		}
	}
	return shared
}

func containsAny(s string, grams []string) bool {
	if s == "" {
		return false
	}
	compact := strings.ReplaceAll(s, " ", "")
	for _, g := range grams {
		if strings.Contains(compact, g) {
			return true
		}
	}
	return false
}
