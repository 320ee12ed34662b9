package rules

import (
	"regexp"
	"strings"
)

// ABP/uBO pattern syntax masks.
const (
	MaskStartURL     = "||"
	MaskPipe         = "|"
	MaskAnyCharacter = "*"
	MaskSeparator    = "^"
)

// RegexAnyCharacter is the sentinel pattern meaning "matches any URL",
// returned by patternToRegexp for a bare "*" pattern so that callers can
// skip regex compilation entirely.
const RegexAnyCharacter = ".*"

// Regular expression fragments that patternToRegexp emits for the pattern
// syntax masks.
const (
	RegexStartURL    = `^[a-z-]+://([a-z0-9-]+\.)?`
	RegexSeparator   = `(?:[^a-zA-Z0-9_%.-]|$)`
	RegexStartString = "^"
	RegexEndString   = "$"
)

// reRegexpSpecial matches characters that need escaping when a literal
// pattern fragment is embedded into a regular expression.
var reRegexpSpecial = regexp.MustCompile(`[.+?^${}()|[\]\\/]`)

// patternToRegexp converts an ABP/uBO basic rule pattern into the equivalent
// regular expression source. It's kept only for NetworkRule's legacy
// Match/shouldMatchHostname path (DNS-level host blocking); the UBX compiler
// never compiles rules to regex, it compiles them to bytecode, see
// compiler/pattern.go.
func patternToRegexp(pattern string) string {
	if pattern == MaskAnyCharacter {
		return RegexAnyCharacter
	}

	if len(pattern) > 1 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		return pattern[1 : len(pattern)-1]
	}

	var sb strings.Builder

	hasStartURL := strings.HasPrefix(pattern, MaskStartURL)
	if hasStartURL {
		sb.WriteString(RegexStartURL)
		pattern = pattern[len(MaskStartURL):]
	} else if strings.HasPrefix(pattern, MaskPipe) {
		sb.WriteString(RegexStartString)
		pattern = pattern[len(MaskPipe):]
	}

	hasEndPipe := strings.HasSuffix(pattern, MaskPipe) && !strings.HasSuffix(pattern, "\\"+MaskPipe)
	if hasEndPipe {
		pattern = pattern[:len(pattern)-len(MaskPipe)]
	}

	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '^':
			sb.WriteString(RegexSeparator)
		default:
			sb.WriteString(reRegexpSpecial.ReplaceAllString(string(r), `\$0`))
		}
	}

	if hasEndPipe {
		sb.WriteString(RegexEndString)
	}

	return sb.String()
}
