package textutil

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters that do not decompose into a base letter + combining mark
var nonDecomposing = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"ø", "o", "Ø", "O",
	"ß", "ss",
)

// Transliterate returns s with diacritics stripped, so "Łódź" becomes "Lodz".
func Transliterate(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, nonDecomposing.Replace(s))
	if err != nil {
		return s
	}
	return out
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases, transliterates and collapses whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(Transliterate(name))
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

type Match struct {
	Key        int
	Text       string
	Similarity float64
}

// RankByName orders the entries of `choices` by Jaro-Winkler similarity of
// their normalized text to `query`, most similar first. Entries containing
// the query verbatim are always ranked above those that don't.
func RankByName(query string, choices map[int]string) []Match {
	query = NormalizeName(query)

	matches := make([]Match, 0, len(choices))
	for key, text := range choices {
		normalized := NormalizeName(text)
		similarity := matchr.JaroWinkler(query, normalized, false)
		if query != "" && strings.Contains(normalized, query) {
			similarity += 1
		}
		matches = append(matches, Match{Key: key, Text: text, Similarity: similarity})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity == matches[j].Similarity {
			return matches[i].Key < matches[j].Key
		}
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}
