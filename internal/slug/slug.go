// Package slug turns post titles into the URL path segments used as public
// lookup keys.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Separator joins the words of a slug.
const Separator = "-"

// StrippedChars are removed outright instead of becoming a separator, so
// "it's" yields "its" rather than "it-s".
const StrippedChars = `*+~.()'"!:@`

// MaxLength matches the size of the posts.slug column.
const MaxLength = 255

// MaxSuffix is the largest disambiguator a suffixed slug may carry.
const MaxSuffix = 9999

// maxCandidate leaves room for Separator plus MaxSuffix.
const maxCandidate = MaxLength - len(Separator) - 4

var (
	stripper = newStripper(StrippedChars)

	// 无法通过 NFD 分解的拉丁字母单独映射
	ligatures = strings.NewReplacer(
		"ß", "ss",
		"æ", "ae",
		"œ", "oe",
		"ø", "o",
		"ł", "l",
		"đ", "d",
		"þ", "th",
	)
)

func newStripper(chars string) *strings.Replacer {
	pairs := make([]string, 0, len(chars)*2)
	for _, r := range chars {
		pairs = append(pairs, string(r), "")
	}
	return strings.NewReplacer(pairs...)
}

// Derive returns the candidate slug for title. The result only contains
// [a-z0-9] and single hyphens, never starts or ends with a hyphen, and is
// empty when title has no letters or digits left after normalization.
// Long results are cut so that a suffixed slug still fits in MaxLength.
func Derive(title string) string {
	s := normalize(title)
	if len(s) > maxCandidate {
		// 只含 ASCII，按字节截断即按字符截断
		s = strings.TrimRight(s[:maxCandidate], Separator)
	}
	return s
}

func normalize(title string) string {
	lowered := strings.ToLower(foldDiacritics(title))
	lowered = ligatures.Replace(lowered)
	cleaned := stripper.Replace(lowered)

	var b strings.Builder
	b.Grow(len(cleaned))

	pending := false
	for _, r := range cleaned {
		if isSlugRune(r) {
			if pending && b.Len() > 0 {
				b.WriteString(Separator)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}

	return b.String()
}

// WithSuffix appends a numeric disambiguator to candidate.
func WithSuffix(candidate string, n int) string {
	return candidate + Separator + strconv.Itoa(n)
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return s != "" && len(s) <= MaxLength && normalize(s) == s
}

func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func foldDiacritics(s string) string {
	// transform.Chain 带有内部状态，每次调用单独创建
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
