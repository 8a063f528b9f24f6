package tags

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fold decomposes s (NFKD), drops combining marks and any remaining
// non-ASCII runes, and lowercases the result.
func fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) || r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// alnum keeps only ASCII letters and digits.
func alnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '_'
}

// CleanSubject reduces a free-text subject to a provider tag: folded to
// ASCII, honorifics and leading titles stripped, words joined with "_".
func (v Vocabulary) CleanSubject(subject string) string {
	words := strings.FieldsFunc(fold(subject), isSeparator)

	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		w = v.stripHonorific(w)
		if w == "" {
			continue
		}
		cleaned = append(cleaned, w)
	}

	// Standalone honorifics ("anya chan") only go when something remains.
	if len(cleaned) > 1 {
		kept := cleaned[:0:0]
		for i, w := range cleaned {
			if i > 0 && slices.Contains(v.Honorifics, alnum(w)) {
				continue
			}
			kept = append(kept, w)
		}
		cleaned = kept
	}

	for len(cleaned) > 1 && slices.Contains(v.TitlePrefixes, alnum(cleaned[0])) {
		cleaned = cleaned[1:]
	}

	out := make([]string, 0, len(cleaned))
	for _, w := range cleaned {
		if w = alnum(w); w != "" {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return strings.Join(strings.FieldsFunc(strings.ToLower(subject), isSeparator), "_")
	}
	return strings.Join(out, "_")
}

// stripHonorific removes a trailing "-honorific" from a word.
func (v Vocabulary) stripHonorific(w string) string {
	idx := strings.LastIndexByte(w, '-')
	if idx <= 0 {
		return w
	}
	if slices.Contains(v.Honorifics, alnum(w[idx+1:])) {
		return w[:idx]
	}
	return w
}

var (
	seasonSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`[\s:,\-]*\b(the\s+)?final\s+season$`),
		regexp.MustCompile(`[\s:,\-]*\b\d+(st|nd|rd|th)\s+(season|part|cour)$`),
		regexp.MustCompile(`[\s:,\-]*\b(season|part|cour|s)\s*\d+$`),
		regexp.MustCompile(`[\s:,\-]*\b(season|part|cour)\s+(ii|iii|iv|v|vi|vii|viii|ix|x|one|two|three|four|five)$`),
		regexp.MustCompile(`\s+(ii|iii|iv|vi|vii|viii|ix)$`),
		regexp.MustCompile(`\s+\d{1,2}$`),
	}
	leadingArticle = regexp.MustCompile(`^(the|a|an)\s+`)
)

// NormalizeCollection turns a collection name into its provider tag:
// alias lookup, then season and part suffix stripping, then article and
// punctuation stripping. The alias table is consulted after each step.
func (v Vocabulary) NormalizeCollection(collection string) string {
	key := aliasKey(collection)
	if key == "" {
		return ""
	}
	if tag, ok := v.Aliases[key]; ok {
		return tag
	}

	stripped := aliasKey(fold(key))
	for {
		before := stripped
		for _, re := range seasonSuffixes {
			if s := strings.TrimSpace(re.ReplaceAllString(stripped, "")); s != "" {
				stripped = s
			}
		}
		if stripped == before {
			break
		}
	}
	if tag, ok := v.Aliases[stripped]; ok {
		return tag
	}

	if s := leadingArticle.ReplaceAllString(stripped, ""); s != "" {
		stripped = s
		if tag, ok := v.Aliases[stripped]; ok {
			return tag
		}
	}

	words := strings.FieldsFunc(stripped, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	if len(words) == 0 {
		return strings.ReplaceAll(key, " ", "_")
	}
	return strings.Join(words, "_")
}
