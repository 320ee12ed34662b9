// Package match implements the runtime decision engine: it memory-maps a
// compiled UBX snapshot (see package ubx) and answers match-request,
// match-response-headers, match-cosmetics, and get-etld1 queries against it
// with no per-call heap allocation on the steady-state path.
//
// An Engine owns its own snapshot, decision cache, and PSL set; there is no
// package-level state.
package match

import "github.com/AdguardTeam/ubxfilter/ubx"

// Decision is the outcome of a network-request match, wire-encoded for
// transmission to the host process.
type Decision uint8

const (
	// Allow lets the request proceed unmodified.
	Allow Decision = 0
	// Block cancels the request outright.
	Block Decision = 1
	// Redirect cancels the request and substitutes a packaged resource.
	Redirect Decision = 2
	// Removeparam lets the request proceed with a sanitized URL.
	Removeparam Decision = 3
)

// String renders d the way logs and Stats.String implementations do
// elsewhere in this codebase.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Block:
		return "block"
	case Redirect:
		return "redirect"
	case Removeparam:
		return "removeparam"
	default:
		return "unknown"
	}
}

// RequestType names the recognized request categories a host may pass to
// MatchRequest/MatchResponseHeaders. These mirror the ABP/uBO vocabulary,
// not rules.RequestType's bit layout; proxy/session.go is responsible for
// the translation between the two.
type RequestType string

const (
	TypeDocument       RequestType = "document"
	TypeSubdocument    RequestType = "subdocument"
	TypeScript         RequestType = "script"
	TypeStylesheet     RequestType = "stylesheet"
	TypeImage          RequestType = "image"
	TypeObject         RequestType = "object"
	TypeXMLHTTPRequest RequestType = "xmlhttprequest"
	TypeMedia          RequestType = "media"
	TypeFont           RequestType = "font"
	TypeWebsocket      RequestType = "websocket"
	TypePing           RequestType = "ping"
	TypeOther          RequestType = "other"
)

// toMask converts t to the snapshot's RequestTypeMask bit, or 0 ("other"/
// unrecognized) if it names nothing this engine tracks specifically.
func (t RequestType) toMask() ubx.RequestTypeMask {
	switch t {
	case TypeDocument:
		return ubx.TypeMainFrame
	case TypeSubdocument:
		return ubx.TypeSubFrame
	case TypeScript:
		return ubx.TypeScript
	case TypeStylesheet:
		return ubx.TypeStylesheet
	case TypeImage:
		return ubx.TypeImage
	case TypeObject:
		return ubx.TypeObject
	case TypeXMLHTTPRequest:
		return ubx.TypeXHR
	case TypeMedia:
		return ubx.TypeMedia
	case TypeFont:
		return ubx.TypeFont
	case TypeWebsocket:
		return ubx.TypeWebsocket
	case TypePing:
		return ubx.TypePing
	default:
		return ubx.TypeOther
	}
}

// isDocument reports whether t is a document or subdocument load, the only
// types response-header and cosmetic resolution apply to.
func (t RequestType) isDocument() bool {
	return t == TypeDocument || t == TypeSubdocument
}

// Party is first-party or third-party relative to the request's document.
type Party uint8

const (
	PartyFirst Party = 1
	PartyThird Party = 2
)

func (p Party) toMask() ubx.PartyMask {
	if p == PartyThird {
		return ubx.PartyThird
	}
	return ubx.PartyFirst
}

// Request describes one network request for MatchRequest.
type Request struct {
	// URL is the request's full URL.
	URL string
	// DocumentURL is the URL of the document the request was made from
	// (itself, for a top-level navigation). Used for party determination
	// and $domain= constraint evaluation.
	DocumentURL string
	// Type is the request's content category.
	Type RequestType
	// TabID and FrameID scope the removeparam redirect-loop guard; hosts
	// that don't track tabs/frames may leave both at 0, but then every
	// removeparam request shares one guard bucket.
	TabID   int
	FrameID int
}

// MatchResult is the outcome of MatchRequest.
type MatchResult struct {
	Decision Decision

	// MatchedRuleID and HasMatchedRule identify the rule that produced
	// Decision, for diagnostics; HasMatchedRule is false for the implicit
	// default-allow outcome.
	MatchedRuleID  uint32
	HasMatchedRule bool
	ListID         uint16

	// RedirectURL is set when Decision == Redirect: the packaged resource
	// path to substitute for the request.
	RedirectURL string

	// SanitizedURL is set when Decision == Removeparam: the request URL
	// with the matched query parameters stripped.
	SanitizedURL string
}

// HeaderPair is a request or response header name/value pair, passed in or
// returned by the header-matching and header-removal pipelines.
type HeaderPair struct {
	Name  string
	Value string
}

// ResponseHeaderResult is the outcome of MatchResponseHeaders.
type ResponseHeaderResult struct {
	// Decision mirrors MatchResult.Decision, restricted to Allow or Block:
	// a $header= rule can turn an otherwise-allowed response into a block
	// once its headers are known.
	Decision Decision

	// RemoveHeaders lists response header names to strip before the
	// response reaches the document (from $removeheader / responseheader
	// rules). CSP headers are never included here even if name-matched;
	// CSP injection/exception is carried by CSPDirectives instead.
	RemoveHeaders []string

	// CSPDirectives lists directive strings to inject into the response's
	// Content-Security-Policy header. Empty if every $csp rule that
	// matched was an exception.
	CSPDirectives []string
}

// CosmeticResult is the outcome of MatchCosmetics for one document.
type CosmeticResult struct {
	// ElementHideSelectors holds the plain element-hiding selectors that
	// survived exceptions, one selector per element; combining them into
	// CSS rule text is left to the caller.
	ElementHideSelectors []string

	// ProceduralPrograms is the surviving set of procedural/HTML/CSS
	// injection payloads (opaque to the engine; interpreted by the host's
	// cosmetic filter).
	ProceduralPrograms []string

	// Scriptlets lists the scriptlet invocations to run on the document.
	Scriptlets []ScriptletInvocation

	// GenericDisabled reports whether generic (domain-less) cosmetics were
	// suppressed for this document, via $elemhide/$generichide or an
	// explicit "#@#generichide" exception.
	GenericDisabled bool

	// ElemhideDisabled reports whether ALL cosmetic filtering (generic and
	// domain-specific) was suppressed for this document, via $elemhide.
	ElemhideDisabled bool
}

// ScriptletInvocation is one resolved scriptlet call.
type ScriptletInvocation struct {
	Name string
	Args string
}

// DynamicVerdict is the result of a host-provided DynamicFilter's
// per-request evaluation, modeling a browser's dynamic-filtering matrix
// (per-site/per-type allow or block toggles set by the user, independent of
// the compiled filter-list snapshot).
type DynamicVerdict uint8

const (
	// DynamicNoop defers to static filtering.
	DynamicNoop DynamicVerdict = iota
	// DynamicAllow short-circuits to Allow.
	DynamicAllow
	// DynamicBlock short-circuits to Block.
	DynamicBlock
)

// DynamicFilter lets a host plug a dynamic-filtering matrix in ahead of
// static filtering. Optional: an Engine with no DynamicFilter set always
// defers to static filtering.
type DynamicFilter interface {
	Evaluate(req Request) DynamicVerdict
}
