// Package textfilter keeps player input family-friendly before it reaches
// the generation endpoint. The product is for children, so filtering is
// unconditional on the play path.
package textfilter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// replacements maps words to filter to family-friendly alternatives.
var replacements = map[string]string{
	"fuck":       "fudge",
	"shit":       "shoot",
	"damn":       "dang",
	"hell":       "heck",
	"ass":        "butt",
	"bitch":      "jerk",
	"bastard":    "jerk",
	"crap":       "crud",
	"piss":       "ticked",
	"asshole":    "jerk",
	"dumbass":    "dummy",
	"jackass":    "jerk",
	"badass":     "tough",
	"bullshit":   "baloney",
	"goddamn":    "gosh-dang",
	"shithead":   "jerk",
	"dickhead":   "jerk",
	"dick":       "jerk",
	"prick":      "jerk",
	"douche":     "jerk",
	"douchebag":  "jerk",
	"stupid idiot": "silly goose",
}

// Filter replaces or detects words unsuitable for a children's game.
type Filter struct {
	regexes map[string]*regexp.Regexp
	words   []string
}

// New compiles the word patterns once. Matching is case-insensitive and
// bounded at word boundaries so embedded fragments ("classical") pass.
func New() *Filter {
	f := &Filter{
		regexes: make(map[string]*regexp.Regexp, len(replacements)),
		words:   make([]string, 0, len(replacements)),
	}
	for word := range replacements {
		f.words = append(f.words, word)
		f.regexes[word] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	// Longest first, so "dickhead" wins over "dick".
	for i := 0; i < len(f.words); i++ {
		for j := i + 1; j < len(f.words); j++ {
			if len(f.words[j]) > len(f.words[i]) {
				f.words[i], f.words[j] = f.words[j], f.words[i]
			}
		}
	}
	return f
}

// Sanitize replaces unsuitable words with family-friendly alternatives,
// preserving the case pattern of the original word.
func (f *Filter) Sanitize(text string) string {
	result := text
	for _, word := range f.words {
		replacement := replacements[word]
		result = f.regexes[word].ReplaceAllStringFunc(result, func(match string) string {
			return preserveCase(match, replacement)
		})
	}
	return result
}

// Contains reports whether the text has any word the filter would replace.
func (f *Filter) Contains(text string) bool {
	for _, word := range f.words {
		if f.regexes[word].MatchString(text) {
			return true
		}
	}
	return false
}

// preserveCase applies the case pattern of the original word to the
// replacement.
func preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(replacement)
	}

	titleCaser := cases.Title(language.English)
	if titleCaser.String(strings.ToLower(original)) == original {
		return titleCaser.String(replacement)
	}

	// Mixed case: mirror the original character by character.
	originalRunes := []rune(original)
	out := make([]rune, 0, len(replacement))
	for i, r := range []rune(replacement) {
		if i < len(originalRunes) && unicode.IsUpper(originalRunes[i]) {
			out = append(out, unicode.ToUpper(r))
		} else {
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}
