package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Each test name below tracks the corresponding end-to-end scenario's
// subject, not its ordinal, so a reader can tell what broke without cross-
// referencing anything external.

func TestScenarioImportantBlockDefeatsException(t *testing.T) {
	e := buildEngine(t, "@@||tracker.test^\n||tracker.test^$important")

	result := e.MatchRequest(Request{
		URL:         "https://tracker.test/beacon",
		DocumentURL: "https://site.test/",
		Type:        TypePing,
	})

	assert.Equal(t, Block, result.Decision)
}

func TestScenarioRedirectSurrogate(t *testing.T) {
	e := buildEngine(t, "||googletagmanager.com/gtm.js$script,redirect=noop.js")

	result := e.MatchRequest(Request{
		URL:         "https://www.googletagmanager.com/gtm.js?id=GTM-XXXX",
		DocumentURL: "https://shop.example.com/",
		Type:        TypeScript,
	})

	assert.Equal(t, Redirect, result.Decision)
	assert.Equal(t, "/web_accessible/noop.js", result.RedirectURL)
}

func TestScenarioRemoveparamLoopGuardSuppressesSecondCall(t *testing.T) {
	e := buildEngine(t, "*$removeparam=gclid")
	req := Request{
		URL:         "https://shop.example.com/p?gclid=abc&x=1",
		DocumentURL: "https://shop.example.com/",
		Type:        TypeDocument,
		TabID:       7,
	}

	first := e.MatchRequest(req)
	assert.Equal(t, Removeparam, first.Decision)
	assert.Equal(t, "https://shop.example.com/p?x=1", first.SanitizedURL)

	second := e.MatchRequest(req)
	assert.Equal(t, Allow, second.Decision)
}

func TestScenarioDomainScopedRuleBlocksAndAllowsByInitiator(t *testing.T) {
	e := buildEngine(t, "/banner.gif$domain=example.com|~shop.example.com")

	blocked := e.MatchRequest(Request{
		URL:         "https://cdn.test/banner.gif",
		DocumentURL: "https://example.com/",
		Type:        TypeImage,
	})
	assert.Equal(t, Block, blocked.Decision)

	allowed := e.MatchRequest(Request{
		URL:         "https://cdn.test/banner.gif",
		DocumentURL: "https://shop.example.com/",
		Type:        TypeImage,
	})
	assert.Equal(t, Allow, allowed.Decision)
}

func TestScenarioCosmeticGenerichideKeepsSiteSpecificSelector(t *testing.T) {
	e := buildEngine(t, "##.ad\nexample.com#@#generichide\nexample.com##.site-ad")

	result := e.MatchCosmetics("https://example.com/")

	assert.Contains(t, result.ElementHideSelectors, ".site-ad")
	assert.NotContains(t, result.ElementHideSelectors, ".ad")
	assert.True(t, result.GenericDisabled)
	assert.False(t, result.ElemhideDisabled)
}

func TestScenarioElemhideDisablesAllCosmetics(t *testing.T) {
	e := buildEngine(t, "example.com##.site-ad\n@@||example.com^$elemhide")

	result := e.MatchCosmetics("https://example.com/")

	assert.Empty(t, result.ElementHideSelectors)
	assert.True(t, result.ElemhideDisabled)
	assert.True(t, result.GenericDisabled)
}

func TestScenarioResponseHeaderCSPInjection(t *testing.T) {
	e := buildEngine(t, "||news.example^$csp=script-src 'self',document")

	result := e.MatchResponseHeaders(Request{
		URL:         "https://news.example/",
		DocumentURL: "https://news.example/",
		Type:        TypeDocument,
	}, nil)

	assert.Equal(t, Allow, result.Decision)
	assert.Contains(t, result.CSPDirectives, "script-src 'self'")
}

func TestScenarioResponseHeaderCSPExceptionSuppressesInjection(t *testing.T) {
	e := buildEngine(t,
		"||news.example^$csp=script-src 'self',document\n@@||news.example^$csp,document")

	result := e.MatchResponseHeaders(Request{
		URL:         "https://news.example/",
		DocumentURL: "https://news.example/",
		Type:        TypeDocument,
	}, nil)

	assert.Empty(t, result.CSPDirectives)
}

func TestScenarioResponseHeaderNonDocumentTypeSkipsPipeline(t *testing.T) {
	e := buildEngine(t, "||news.example^$csp=script-src 'self',document")

	result := e.MatchResponseHeaders(Request{
		URL:         "https://news.example/app.js",
		DocumentURL: "https://news.example/",
		Type:        TypeScript,
	}, nil)

	assert.Equal(t, Allow, result.Decision)
	assert.Empty(t, result.CSPDirectives)
}

func TestScenarioGetETLD1IsIdempotent(t *testing.T) {
	e := buildEngine(t, "||example.com^")

	first := e.GetETLD1("www.news.example.com")
	second := e.GetETLD1(first)

	assert.Equal(t, first, second)
}

func TestScenarioPrecedenceStableAcrossRepeatedCalls(t *testing.T) {
	e := buildEngine(t, "||ads.example.com^\n@@||ads.example.com^$domain=news.example")
	req := Request{
		URL:         "https://ads.example.com/banner.js",
		DocumentURL: "https://news.example/",
		Type:        TypeScript,
	}

	first := e.MatchRequest(req)
	for i := 0; i < 5; i++ {
		again := e.MatchRequest(req)
		assert.Equal(t, first.Decision, again.Decision)
		assert.Equal(t, first.MatchedRuleID, again.MatchedRuleID)
	}
}
