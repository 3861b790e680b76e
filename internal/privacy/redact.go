// Package privacy scrubs credentials from text before it is printed.
package privacy

import (
	"fmt"
	"regexp"
	"sort"
)

const redactedPlaceholder = "[REDACTED]"

// tokenParam matches access tokens embedded in URLs or form bodies.
var tokenParam = regexp.MustCompile(`(access_token|password|client_secret)=[^&\s"]+`)

// Compile compiles a list of regex pattern strings into compiled regexps.
func Compile(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile redact pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Literals builds patterns matching each secret verbatim. Longer secrets
// come first so a secret containing another is replaced whole.
func Literals(secrets ...string) []*regexp.Regexp {
	sorted := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			sorted = append(sorted, s)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	out := make([]*regexp.Regexp, 0, len(sorted))
	for _, s := range sorted {
		out = append(out, regexp.MustCompile(regexp.QuoteMeta(s)))
	}
	return out
}

// Apply replaces all matches of the compiled patterns in text with [REDACTED].
func Apply(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		text = re.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

// Redactor hides a fixed set of secrets, any extra patterns, and
// credential-looking parameters.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor returns a redactor for the given secrets and compiled patterns.
// Secrets are replaced first. Empty secrets are ignored.
func NewRedactor(patterns []*regexp.Regexp, secrets ...string) *Redactor {
	all := Literals(secrets...)
	all = append(all, patterns...)
	return &Redactor{patterns: all}
}

// Redact returns s with every secret replaced. A nil Redactor still hides
// credential parameters.
func (r *Redactor) Redact(s string) string {
	if r != nil {
		s = Apply(s, r.patterns)
	}
	return tokenParam.ReplaceAllString(s, "${1}="+redactedPlaceholder)
}

// Error is Redact applied to err's message; it returns "" for a nil error.
func (r *Redactor) Error(err error) string {
	if err == nil {
		return ""
	}
	return r.Redact(err.Error())
}
