package strategy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Matching the feed's team abbreviations (RADF, BCOOK, MASLOW) against
// the exchange's full names (Radford, Bethune-Cookman, UMass Lowell) is
// heuristic by necessity: the two vendors never agreed on a code scheme.
// Tactics, in order: word prefix, acronym, compound (head of first word +
// head of another), shared 3-char prefix, containment, vowel-dropping
// subsequence. Soccer names get diacritics stripped first (Atlético).

var titleRe = regexp.MustCompile(`(?i)^(.+?) at (.+?)(?::.*)?$`)

// ParseTitle extracts the team names from an exchange market title:
//
//	"Gardner-Webb at Radford: Total Points" -> ("Gardner-Webb", "Radford")
func ParseTitle(title string) (away, home string, ok bool) {
	m := titleRe.FindStringSubmatch(title)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

var wordSplitRe = regexp.MustCompile(`[\s\-.&]+`)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func splitWords(fullName string) []string {
	if s, _, err := transform.String(deaccent, fullName); err == nil {
		fullName = s
	}
	var words []string
	for _, w := range wordSplitRe.Split(strings.ToUpper(fullName), -1) {
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// AbbrevMatchesName reports whether a feed abbreviation plausibly refers
// to the exchange's full team name.
func AbbrevMatchesName(abbrev, fullName string) bool {
	abbrev = strings.ToUpper(abbrev)
	if abbrev == "" || fullName == "" {
		return false
	}
	words := splitWords(fullName)
	if len(words) == 0 {
		return false
	}

	// 1. Prefix of any single word, either direction.
	for _, word := range words {
		if len(word) >= 3 && strings.HasPrefix(abbrev, word[:min(len(word), len(abbrev))]) {
			return true
		}
		if len(abbrev) >= 3 && strings.HasPrefix(word, abbrev[:min(len(abbrev), len(word))]) {
			return true
		}
	}

	// 2. Acronym: exact, prefix, or contained (UMKC carries KC for
	// "Kansas City").
	if len(words) >= 2 {
		var b strings.Builder
		for _, w := range words {
			b.WriteByte(w[0])
		}
		acronym := b.String()
		if abbrev == acronym || strings.HasPrefix(abbrev, acronym) || strings.Contains(abbrev, acronym) {
			return true
		}
	}

	// 3. Compound: first 1-3 chars of word[0] + first 1-5 chars of the
	// last (or second) word. Also retried with the campus "U" prefix
	// stripped: the exchange writes "UMass Lowell" where the feed codes
	// the base name, MASLOW.
	variants := [][]string{words}
	if stripped := stripCampusPrefix(words); stripped != nil {
		variants = append(variants, stripped)
	}
	for _, wl := range variants {
		if matchCompound(abbrev, wl) {
			return true
		}
	}

	// 3b. Shared 3-char prefix: LOULAF vs "Louisiana", TENTCH vs
	// "Tennessee Tech" — the feed encodes campus info the exchange drops.
	if len(abbrev) >= 4 {
		for _, word := range words {
			if len(word) >= 3 && abbrev[:3] == word[:3] {
				return true
			}
		}
	}

	// 4. Containment in the squashed full name.
	clean := strings.Join(words, "")
	if strings.Contains(clean, abbrev[:min(4, len(abbrev))]) {
		return true
	}

	// 5. Vowel-dropping subsequence: LIBRTY reads through LIBERTY.
	if len(abbrev) >= 4 {
		for _, word := range words {
			if isSubsequence(abbrev, word) {
				return true
			}
		}
	}

	return false
}

func matchCompound(abbrev string, words []string) bool {
	if len(words) < 2 {
		return false
	}
	for w1 := 1; w1 <= 3; w1++ {
		for w2 := 1; w2 <= 5; w2++ {
			if len(words[0]) >= w1 && len(words[len(words)-1]) >= w2 {
				cand := words[0][:w1] + words[len(words)-1][:w2]
				if abbrev == cand || strings.HasPrefix(abbrev, cand) {
					return true
				}
			}
			if len(words) >= 3 && len(words[0]) >= w1 && len(words[1]) >= w2 {
				cand := words[0][:w1] + words[1][:w2]
				if abbrev == cand || strings.HasPrefix(abbrev, cand) {
					return true
				}
			}
		}
	}
	return false
}

// stripCampusPrefix rewrites UMASS -> MASS, UCONN -> CONN. Returns nil
// when nothing changed.
func stripCampusPrefix(words []string) []string {
	changed := false
	out := make([]string, len(words))
	for i, w := range words {
		if len(w) > 2 && w[0] == 'U' && !strings.ContainsRune("AEIOU", rune(w[1])) {
			out[i] = w[1:]
			changed = true
		} else {
			out[i] = w
		}
	}
	if !changed {
		return nil
	}
	return out
}

// isSubsequence reports whether abbrev's characters appear in order
// within word, anchored on a matching first character.
func isSubsequence(abbrev, word string) bool {
	if abbrev == "" || word == "" || abbrev[0] != word[0] {
		return false
	}
	ai := 0
	for wi := 0; ai < len(abbrev) && wi < len(word); wi++ {
		if abbrev[ai] == word[wi] {
			ai++
		}
	}
	return ai == len(abbrev)
}
