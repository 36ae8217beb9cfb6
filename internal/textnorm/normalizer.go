// Package textnorm cleans chat text before it is vectorized.
package textnorm

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholder substituted for blacklisted phrases.
const NamePlaceholder = "__name__"

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules run in declared order; each one sees the output of the previous.
var rules = []rule{
	{regexp.MustCompile(`<a?:(\w{2,32}):\d{15,21}>`), ""},
	{regexp.MustCompile(`<@!?\d{15,21}>`), "__user__"},
	{regexp.MustCompile(`<@&\d{15,21}>`), "__role__"},
	{regexp.MustCompile(`<#\d{15,21}>`), "__channel__"},
	{regexp.MustCompile(`(^|\s)@\w{5,32}`), "${1}__user__"},
	{regexp.MustCompile(`https?://(?:[a-zA-Z]|[0-9]|[#-_]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`), "__url__"},
	{regexp.MustCompile(`what's`), "what is"},
	{regexp.MustCompile(`'s`), ""},
	{regexp.MustCompile(`'ve`), " have"},
	{regexp.MustCompile(`can't`), "cannot"},
	{regexp.MustCompile(`i'm`), "i am"},
	{regexp.MustCompile(`'re`), " are"},
	{regexp.MustCompile(`'d`), " would"},
	{regexp.MustCompile(`'ll`), " will"},
	{regexp.MustCompile(`'`), ""},
	{regexp.MustCompile(`[^\p{L}\p{N}_]`), " "},
	{regexp.MustCompile(`\s+`), " "},
}

// Normalizer applies the blacklist redaction and the substitution rules.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	blacklist []*regexp.Regexp
}

// New compiles the blacklist patterns. Patterns use RE2 syntax and match
// case-insensitively; lookarounds and backreferences fail to compile.
func New(blacklist []string) (*Normalizer, error) {
	n := &Normalizer{blacklist: make([]*regexp.Regexp, 0, len(blacklist))}
	for _, phrase := range blacklist {
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + phrase)
		if err != nil {
			return nil, fmt.Errorf("invalid blacklist pattern %q: %w", phrase, err)
		}
		n.blacklist = append(n.blacklist, re)
	}
	return n, nil
}

// Normalize returns the cleaned form of text, or "" when fewer than two tokens remain.
func (n *Normalizer) Normalize(text string) string {
	for _, re := range n.blacklist {
		text = re.ReplaceAllString(text, NamePlaceholder)
	}

	text = cases.Lower(language.Und).String(text)

	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}

	text = strings.Trim(text, " ")
	if len(strings.Fields(text)) < 2 {
		return ""
	}
	return text
}

// NormalizeAll cleans every text, preserving order.
func (n *Normalizer) NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = n.Normalize(t)
	}
	return out
}
