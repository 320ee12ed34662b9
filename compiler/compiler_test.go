package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdguardTeam/ubxfilter/ubx"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TrackResourceUsage = false
	return cfg
}

func TestCompileProducesLoadableSnapshot(t *testing.T) {
	c := New(testConfig())

	texts := []string{
		"||ads.example.com^$script\n##.banner\n! a comment\n",
	}

	snapshot, stats, err := c.Compile(texts)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.Equal(t, 2, stats.RulesBefore)
	assert.Equal(t, 1, stats.RulesAfter)

	s, err := ubx.Load(snapshot)
	require.NoError(t, err)
	assert.True(t, s.HasCRC32())

	for _, id := range ubx.AllSectionIDs {
		_, ok := s.Section(id)
		assert.True(t, ok, "section %s missing from emitted snapshot", id)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	c := New(testConfig())

	texts := []string{
		"||ads.example.com^$script\n||tracker.test^$domain=news.example\n##.ad\nexample.org##.promo\n",
	}

	first, _, err := c.Compile(texts)
	require.NoError(t, err)

	second, _, err := c.Compile(texts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompileRejectsEmptyCorpus(t *testing.T) {
	c := New(testConfig())

	_, _, err := c.Compile([]string{"! nothing but a comment\n\n"})
	assert.ErrorIs(t, err, ErrNoSurvivingRules)
}

func TestCompileFoldsBadfilterRules(t *testing.T) {
	c := New(testConfig())

	texts := []string{
		"||ads.example.com^$script\n||ads.example.com^$script,badfilter\n",
	}

	_, stats, err := c.Compile(texts)
	require.ErrorIs(t, err, ErrNoSurvivingRules)

	assert.Equal(t, 1, stats.BadfilterRules)
	assert.Equal(t, 1, stats.BadfilteredRules)
}

func TestCompileDedupesExactDuplicateRules(t *testing.T) {
	c := New(testConfig())

	texts := []string{
		"||ads.example.com^$script\n||ads.example.com^$script\n",
	}

	_, stats, err := c.Compile(texts)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.RulesDeduped)
	assert.Equal(t, 1, stats.RulesAfter)
}

func TestCompileCountsPerListStats(t *testing.T) {
	c := New(testConfig())

	texts := []string{
		"||a.example^\n",
		"||b.example^\n! comment\n",
	}

	_, stats, err := c.Compile(texts)
	require.NoError(t, err)

	require.Len(t, stats.PerList, 2)
	assert.Equal(t, 1, stats.PerList[0].RulesAfterNormalization)
	assert.Equal(t, 1, stats.PerList[1].RulesAfterNormalization)
}

func TestCompileSkipsOverlongRegex(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRegexLength = 4

	c := New(cfg)

	texts := []string{"/abcdefgh/\n"}

	_, _, err := c.Compile(texts)
	assert.ErrorIs(t, err, ErrNoSurvivingRules)
}
