package devedit

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Strategy string

const (
	StrategyExact      Strategy = "exact"
	StrategyNormalized Strategy = "normalized"
	StrategyRegex      Strategy = "regex"
	StrategyMultiFile  Strategy = "multi_file"
)

// span is a byte range of the original content.
type span struct {
	start, end int
}

type matcher struct {
	strategy Strategy
	find     func(content, text string) (span, bool)
}

// matchers are tried in order on a single file.
var matchers = []matcher{
	{StrategyExact, findExact},
	{StrategyNormalized, findNormalized},
	{StrategyRegex, findFlexible},
}

func findExact(content, text string) (span, bool) {
	if strings.TrimSpace(text) == "" {
		return span{}, false
	}
	i := strings.Index(content, text)
	if i < 0 {
		return span{}, false
	}
	return span{i, i + len(text)}, true
}

// normalize collapses whitespace runs into one space. offsets maps every byte of the
// result to the byte of s it comes from.
func normalize(s string) (string, []int) {
	var b strings.Builder
	offsets := make([]int, 0, len(s))
	inSpace := false
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				offsets = append(offsets, i)
				inSpace = true
			}
			i += size
			continue
		}
		inSpace = false
		b.WriteString(s[i : i+size])
		for k := 0; k < size; k++ {
			offsets = append(offsets, i+k)
		}
		i += size
	}
	return b.String(), offsets
}

func findNormalized(content, text string) (span, bool) {
	needle, _ := normalize(strings.TrimSpace(text))
	if needle == "" {
		return span{}, false
	}
	haystack, offsets := normalize(content)
	i := strings.Index(haystack, needle)
	if i < 0 {
		return span{}, false
	}
	last := offsets[i+len(needle)-1]
	_, size := utf8.DecodeRuneInString(content[last:])
	return span{offsets[i], last + size}, true
}

var tokenRegex = regexp.MustCompile(`\w+|[^\w\s]`)

// flexiblePattern matches the tokens of text in order with any whitespace between
// punctuation, and at least some whitespace between two words.
func flexiblePattern(text string) string {
	tokens := tokenRegex.FindAllString(text, -1)
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			if isWord(tokens[i-1]) && isWord(tok) {
				b.WriteString(`\s+`)
			} else {
				b.WriteString(`\s*`)
			}
		}
		b.WriteString(regexp.QuoteMeta(tok))
	}
	return b.String()
}

func isWord(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func findFlexible(content, text string) (span, bool) {
	pattern := flexiblePattern(text)
	if pattern == "" {
		return span{}, false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return span{}, false
	}
	loc := re.FindStringIndex(content)
	if loc == nil {
		return span{}, false
	}
	return span{loc[0], loc[1]}, true
}

// findIn runs the single file matchers in order.
func findIn(content, text string) (span, Strategy, bool) {
	for _, m := range matchers {
		if sp, ok := m.find(content, text); ok {
			return sp, m.strategy, true
		}
	}
	return span{}, "", false
}

func lineOf(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}
