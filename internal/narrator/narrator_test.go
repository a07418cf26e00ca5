package narrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/lunar/internal/analytics"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/llm"
	"github.com/newthinker/lunar/internal/lunar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	text   string
	err    error
	prompt llm.Prompt
	block  bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, p llm.Prompt) (*llm.Completion, error) {
	f.prompt = p
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.text}, nil
}

type sourceCounter map[string]int

func (s sourceCounter) RecordNarration(source string) { s[source]++ }

func sampleReport(t *testing.T) *analytics.Report {
	t.Helper()
	series := make(core.Series, 8)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range series {
		series[i] = core.MarketDay{
			Date:               start.AddDate(0, 0, i),
			Price:              100 + float64(i),
			PhaseIndex:         i,
			PriceChangePercent: float64(i + 1),
		}
	}
	report, err := analytics.Run(series)
	require.NoError(t, err)
	return report
}

func TestRules(t *testing.T) {
	report := sampleReport(t)

	text := Rules(report)
	assert.True(t, strings.HasPrefix(text, analytics.Outlook(lunar.WaningCrescent)))
	assert.Contains(t, text, "Full moon days have been bullish (+5.00% over 1 days).")
	assert.Contains(t, text, "Waning Crescent has been the strongest phase at +8.00% per day.")
}

func TestRules_UndefinedEffects(t *testing.T) {
	series := core.Series{{Date: time.Now(), Price: 120, PhaseIndex: 4, PriceChangePercent: -1}}
	report, err := analytics.Run(series)
	require.NoError(t, err)

	text := Rules(report)
	assert.Contains(t, text, "Full moon days have been bearish")
	assert.Contains(t, text, "New moon days: no data yet.")
	assert.Contains(t, text, "Quarter moon days: no data yet.")
}

func TestNarrate_NoProvider(t *testing.T) {
	report := sampleReport(t)
	counts := sourceCounter{}
	n := New(nil, time.Second, 100, nil)
	n.SetRecorder(counts)

	out := n.Narrate(context.Background(), report)
	assert.Equal(t, SourceRules, out.Source)
	assert.Equal(t, Rules(report), out.Text)
	assert.Equal(t, 1, counts[SourceRules])
}

func TestNarrate_Provider(t *testing.T) {
	report := sampleReport(t)
	p := &fakeProvider{text: "  The moon smiles on bulls.  "}
	counts := sourceCounter{}
	n := New(p, time.Second, 120, nil)
	n.SetRecorder(counts)

	out := n.Narrate(context.Background(), report)
	assert.Equal(t, "fake", out.Source)
	assert.Equal(t, "The moon smiles on bulls.", out.Text)
	assert.Equal(t, 120, p.prompt.MaxTokens)
	assert.Contains(t, p.prompt.User, "Simulated days: 8")
	assert.Equal(t, 1, counts["fake"])
}

func TestNarrate_FallsBackOnError(t *testing.T) {
	report := sampleReport(t)
	p := &fakeProvider{err: core.WrapError(core.ErrLLMFailed, errors.New("boom"))}
	n := New(p, time.Second, 0, nil)

	out := n.Narrate(context.Background(), report)
	assert.Equal(t, SourceRules, out.Source)
	assert.Equal(t, Rules(report), out.Text)
}

func TestNarrate_FallsBackOnEmptyText(t *testing.T) {
	report := sampleReport(t)
	n := New(&fakeProvider{text: "   "}, time.Second, 0, nil)

	out := n.Narrate(context.Background(), report)
	assert.Equal(t, SourceRules, out.Source)
}

func TestNarrate_Timeout(t *testing.T) {
	report := sampleReport(t)
	n := New(&fakeProvider{block: true}, 10*time.Millisecond, 0, nil)

	start := time.Now()
	out := n.Narrate(context.Background(), report)
	assert.Equal(t, SourceRules, out.Source)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPrompt(t *testing.T) {
	p := Prompt(sampleReport(t))

	assert.NotEmpty(t, p.System)
	assert.Contains(t, p.User, "Full moon effect: +5.00% (bullish)")
	assert.Contains(t, p.User, "- 🌑 New Moon: +1.00% (1 days)")
	assert.Equal(t, 8, strings.Count(p.User, "\n- "))
}
