package taxonomy

import (
	"strings"
	"unicode"
)

// Resolve maps an oracle's genre and subgenre answers onto the vocabulary.
//
// The returned subgenre is empty or belongs to the returned genre.
func Resolve(genre, subgenre string) (string, string) {
	g := MapGenre(genre)
	return g, MapSubgenre(g, subgenre)
}

// MapGenre returns the vocabulary genre for raw.
//
// An exact case-insensitive match wins; otherwise the synonym table is searched
// for whole-word keyword matches; otherwise [DefaultGenre].
func MapGenre(raw string) string {
	if g, ok := exactGenre(raw); ok {
		return g
	}
	if g, ok := keywordGenre(raw); ok {
		return g
	}
	return DefaultGenre
}

// MapSubgenre returns the subgenre of genre that raw names, or "".
//
// Only genre's own list is searched: a value from another genre never leaks through.
func MapSubgenre(genre, raw string) string {
	allowed := Subgenres[genre]
	if len(allowed) == 0 || strings.TrimSpace(raw) == "" {
		return ""
	}

	for _, s := range allowed {
		if strings.EqualFold(strings.TrimSpace(raw), s) {
			return s
		}
	}

	text := normalize(raw)
	best := ""
	for _, s := range allowed {
		if containsPhrase(text, normalize(s)) && len(s) > len(best) {
			best = s
		}
	}
	return best
}

// IsGenre reports whether g is in the vocabulary exactly.
func IsGenre(g string) bool {
	for _, v := range Genres {
		if v == g {
			return true
		}
	}
	return false
}

// IsSubgenre reports whether s is "" or one of genre's subgenres.
func IsSubgenre(genre, s string) bool {
	if s == "" {
		return true
	}
	for _, v := range Subgenres[genre] {
		if v == s {
			return true
		}
	}
	return false
}

func exactGenre(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, g := range Genres {
		if strings.EqualFold(raw, g) {
			return g, true
		}
	}
	return "", false
}

func keywordGenre(raw string) (string, bool) {
	text := normalize(raw)
	if text == "" {
		return "", false
	}
	for _, s := range synonyms {
		if containsPhrase(text, s.keyword) {
			return s.genre, true
		}
	}
	return "", false
}

// normalize lowercases s, turns separators into spaces and collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '/', ',', '.', '(', ')':
			return ' '
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// containsPhrase reports whether phrase occurs in text on word boundaries.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	padded := " " + text + " "
	return strings.Contains(padded, " "+phrase+" ")
}
