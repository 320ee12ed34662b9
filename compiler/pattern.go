package compiler

import (
	"strings"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// patOp mirrors ubx.Op but carries its literal as a plain string; the
// builder interns it into the snapshot's string pool once the rule's final
// rule id is known.
type patOp struct {
	code    ubx.PatternOp
	literal string
}

// compiledPattern is the result of compiling a network rule's basic pattern,
// before token selection and pool interning.
type compiledPattern struct {
	ops           []patOp
	anchor        ubx.PatternAnchorType
	caseSensitive bool
	hostHash      ubx.Hash64

	// hostnameOnly holds the lowercase hostname when the pattern reduces to
	// exactly "||host^" or "||host" with nothing else: these rules are indexed by
	// DOMAIN_SETS instead of the token/pattern path.
	hostnameOnly string

	// candidates are the alphanumeric substrings (length >= 3) extracted
	// from the pattern's literal segments, rarest-token selection's input.
	candidates []string
}

// compileBasicPattern compiles an ABP/uBO basic (non-regex) pattern into
// bytecode. matchCase is the rule's $match-case state.
func compileBasicPattern(pattern string, matchCase bool) compiledPattern {
	cp := compiledPattern{caseSensitive: matchCase}

	if pattern == "" || pattern == "*" {
		cp.anchor = ubx.AnchorNone
		cp.ops = []patOp{{code: ubx.OpDone}}
		return cp
	}

	body := pattern
	hasHostAnchor := strings.HasPrefix(body, "||")
	hasLeftAnchor := !hasHostAnchor && strings.HasPrefix(body, "|")

	switch {
	case hasHostAnchor:
		cp.anchor = ubx.AnchorHostname
		body = body[2:]
	case hasLeftAnchor:
		cp.anchor = ubx.AnchorLeft
		body = body[1:]
	default:
		cp.anchor = ubx.AnchorNone
	}

	hasRightAnchor := strings.HasSuffix(body, "|") && !strings.HasSuffix(body, `\|`)
	if hasRightAnchor {
		body = body[:len(body)-1]
	}

	if hasHostAnchor {
		host, rest := splitHostAnchorBody(body)
		cp.hostHash = fasthash.HashDomain(host)
		if rest == "" || rest == "^" {
			cp.hostnameOnly = strings.ToLower(host)
		}
	}

	var ops []patOp
	if hasHostAnchor {
		ops = append(ops, patOp{code: ubx.OpHostAnchor})
	} else if hasLeftAnchor {
		ops = append(ops, patOp{code: ubx.OpAssertStart})
	}

	bodyOps, candidates := compilePatternBody(body)
	ops = append(ops, bodyOps...)

	if hasRightAnchor {
		ops = append(ops, patOp{code: ubx.OpAssertEnd})
	}

	ops = append(ops, patOp{code: ubx.OpDone})

	cp.ops = ops
	cp.candidates = candidates

	return cp
}

// compileRegexPattern compiles a `/regex/` rule into a single FIND_LIT op
// whose literal is the verbatim regex source (delimiters stripped). The
// bytecode VM never interprets this op for AnchorRegex patterns;
// match/pattern.go's verifyPattern special-cases the anchor (verifyRegex) to lazily compile and cache a regexp.Regexp
// instead, since ABP/uBO regex syntax isn't expressible as the plain-text
// literal scan the other ops assume.
func compileRegexPattern(pattern string, matchCase bool) compiledPattern {
	source := strings.TrimSuffix(strings.TrimPrefix(pattern, "/"), "/")

	return compiledPattern{
		caseSensitive: matchCase,
		anchor:        ubx.AnchorRegex,
		ops: []patOp{
			{code: ubx.OpFindLit, literal: source},
			{code: ubx.OpDone},
		},
	}
}

// splitHostAnchorBody splits the pattern body following "||" into the
// hostname portion and whatever pattern text follows it, at the first
// occurrence of a pattern-special character.
func splitHostAnchorBody(body string) (host, rest string) {
	i := strings.IndexAny(body, "^*|/")
	if i < 0 {
		return body, ""
	}

	return body[:i], body[i:]
}

// compilePatternBody walks a pattern body (anchors already stripped),
// emitting FIND_LIT for literal runs, SKIP_ANY for "*", and
// ASSERT_BOUNDARY for "^". It also collects candidate tokens: maximal
// lowercase-alphanumeric substrings of length >= 3 found in the literal
// runs, the input to rarest-token selection (stage 5).
func compilePatternBody(body string) (ops []patOp, candidates []string) {
	var lit strings.Builder

	flushLit := func() {
		if lit.Len() == 0 {
			return
		}

		s := lit.String()
		ops = append(ops, patOp{code: ubx.OpFindLit, literal: s})
		candidates = append(candidates, extractTokenCandidates(s)...)
		lit.Reset()
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '*':
			flushLit()
			ops = append(ops, patOp{code: ubx.OpSkipAny})
		case '^':
			flushLit()
			ops = append(ops, patOp{code: ubx.OpAssertBoundary})
		case '\\':
			if i+1 < len(body) {
				i++
				lit.WriteByte(body[i])
			}
		default:
			lit.WriteByte(c)
		}
	}
	flushLit()

	return ops, candidates
}

// extractTokenCandidates returns the maximal lowercase-alphanumeric
// substrings of s with length >= 3.
func extractTokenCandidates(s string) []string {
	lower := strings.ToLower(s)

	var out []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() >= 3 {
			out = append(out, cur.String())
		}
		cur.Reset()
	}

	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			cur.WriteByte(c)
		} else {
			flush()
		}
	}
	flush()

	return out
}
