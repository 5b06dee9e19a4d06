package taxonomy

import (
	"regexp"
	"strings"
)

// Canonical-key grammar: lowercase snake_case, letter first, no leading,
// trailing, or doubled underscores. Single-character keys are allowed by the
// grammar; the engine additionally enforces the 2–100 length bounds.
var canonicalKeyRe = regexp.MustCompile(`^[a-z]([a-z0-9_]*[a-z0-9])?$`)

const (
	minKeyLen = 2
	maxKeyLen = 100
)

// Normalize turns a free-text tag candidate into canonical-key form:
// lowercase, whitespace and hyphen runs collapsed to a single underscore,
// characters outside [a-z0-9_] stripped, repeated underscores collapsed,
// leading/trailing underscores trimmed.
//
// Normalize is deterministic and idempotent: Normalize(Normalize(x)) ==
// Normalize(x). It does NOT guarantee the result is a valid canonical key
// (the input may normalize to empty, too long, or digit-leading); validation
// is a separate step.
func Normalize(input string) string {
	lowered := strings.ToLower(input)

	var b strings.Builder
	b.Grow(len(lowered))
	lastUnderscore := false
	for _, r := range lowered {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '-' || r == '_':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			// Stripped characters do not break an underscore run.
		}
	}
	return strings.Trim(b.String(), "_")
}

// WellFormed reports whether key satisfies the canonical-key grammar and
// length bounds. Keys must already be normalized; a raw candidate goes
// through Normalize first.
func WellFormed(key string) bool {
	if len(key) < minKeyLen || len(key) > maxKeyLen {
		return false
	}
	if strings.Contains(key, "__") {
		return false
	}
	return canonicalKeyRe.MatchString(key)
}

// Label derives the display label for a canonical key: underscores to spaces,
// each word initial-capped. Labels are never stored, so relabeling is a pure
// presentation change.
func Label(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		if w[0] >= 'a' && w[0] <= 'z' {
			words[i] = string(w[0]-'a'+'A') + w[1:]
		}
	}
	return strings.Join(words, " ")
}
