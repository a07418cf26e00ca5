// Package narrator turns an analytics report into a short prose outlook.
//
// Narration is rule-based unless an llm.Provider is configured. A provider
// failure never fails the request; the rule-based text is returned instead.
package narrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/lunar/internal/analytics"
	"github.com/newthinker/lunar/internal/llm"
	"go.uber.org/zap"
)

// SourceRules marks narration produced without a model.
const SourceRules = "rules"

const systemPrompt = `You write one-paragraph market color for a toy simulator that links
lunar phases to a synthetic stock price. Use only the figures given. Keep it under 80 words,
and end by noting the data is simulated and not financial advice.`

// Narration is the outlook text and where it came from.
type Narration struct {
	Text   string `json:"text" yaml:"text"`
	Source string `json:"source" yaml:"source"`
}

// Recorder counts narrations by source. metrics.Registry satisfies it.
type Recorder interface {
	RecordNarration(source string)
}

// Narrator produces outlooks.
type Narrator struct {
	provider  llm.Provider
	timeout   time.Duration
	maxTokens int
	recorder  Recorder
	logger    *zap.Logger
}

// New creates a narrator. A nil provider keeps narration rule-based.
func New(provider llm.Provider, timeout time.Duration, maxTokens int, logger *zap.Logger) *Narrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Narrator{
		provider:  provider,
		timeout:   timeout,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// SetRecorder routes narration counts to rec.
func (n *Narrator) SetRecorder(rec Recorder) {
	n.recorder = rec
}

// Narrate describes report.
func (n *Narrator) Narrate(ctx context.Context, report *analytics.Report) Narration {
	fallback := Narration{Text: Rules(report), Source: SourceRules}
	if n.provider == nil {
		n.record(SourceRules)
		return fallback
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	prompt := Prompt(report)
	prompt.MaxTokens = n.maxTokens
	out, err := n.provider.Complete(ctx, prompt)
	if err != nil {
		n.logger.Warn("narration failed, using rules",
			zap.String("provider", n.provider.Name()),
			zap.Error(err),
		)
		n.record(SourceRules)
		return fallback
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		n.record(SourceRules)
		return fallback
	}

	n.logger.Debug("narration complete",
		zap.String("provider", n.provider.Name()),
		zap.Int("input_tokens", out.InputTokens),
		zap.Int("output_tokens", out.OutputTokens),
	)
	n.record(n.provider.Name())
	return Narration{Text: text, Source: n.provider.Name()}
}

func (n *Narrator) record(source string) {
	if n.recorder != nil {
		n.recorder.RecordNarration(source)
	}
}

// Rules narrates report without a model.
func Rules(report *analytics.Report) string {
	var b strings.Builder
	b.WriteString(report.Outlook)

	for _, e := range []struct {
		label  string
		effect analytics.Effect
	}{
		{"Full moon", report.FullMoonEffect},
		{"New moon", report.NewMoonEffect},
		{"Quarter moon", report.QuarterEffect},
	} {
		b.WriteString(" ")
		b.WriteString(effectSentence(e.label, e.effect))
	}

	if best := report.BestPhase; best.Count > 0 {
		fmt.Fprintf(&b, " %s %s has been the strongest phase at %+.2f%% per day.", best.Glyph, best.Name, best.Mean)
	}
	return b.String()
}

func effectSentence(label string, e analytics.Effect) string {
	if !e.Defined {
		return fmt.Sprintf("%s days: no data yet.", label)
	}
	return fmt.Sprintf("%s days have been %s (%+.2f%% over %d days).", label, analytics.Tendency(e), e.Mean, e.Count)
}

// Prompt renders report as an llm prompt.
func Prompt(report *analytics.Report) llm.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Simulated days: %d\n", report.Days)
	fmt.Fprintf(&b, "Latest: %s %s, price %.2f (%+.2f%%)\n",
		report.Latest.Glyph, report.Latest.Phase, report.Latest.Price, report.Latest.ChangePercent)
	fmt.Fprintf(&b, "Overall mean change: %+.2f%%, std dev %.2f\n", report.OverallMean, report.OverallStdDev)
	b.WriteString("Mean change by phase:\n")
	for _, s := range report.ByPhase {
		fmt.Fprintf(&b, "- %s %s: %+.2f%% (%d days)\n", s.Glyph, s.Name, s.Mean, s.Count)
	}
	fmt.Fprintf(&b, "Full moon effect: %s\n", effectLine(report.FullMoonEffect))
	fmt.Fprintf(&b, "New moon effect: %s\n", effectLine(report.NewMoonEffect))
	fmt.Fprintf(&b, "Quarter effect: %s\n", effectLine(report.QuarterEffect))
	fmt.Fprintf(&b, "Headline: %s\n", report.Outlook)

	return llm.Prompt{
		System:      systemPrompt,
		User:        b.String(),
		Temperature: 0.7,
	}
}

func effectLine(e analytics.Effect) string {
	if !e.Defined {
		return "no data"
	}
	return fmt.Sprintf("%+.2f%% (%s)", e.Mean, analytics.Tendency(e))
}
