package present

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"resumeMatch/internal/analysis"
	"resumeMatch/internal/session"
)

func TestBandFor_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		label string
		ind   Indicator
	}{
		{100, "Excellent", IndicatorUp},
		{80, "Excellent", IndicatorUp},
		{79.99, "Good", IndicatorUp},
		{79, "Good", IndicatorUp},
		{60, "Good", IndicatorUp},
		{59, "Moderate", IndicatorFlat},
		{40, "Moderate", IndicatorFlat},
		{39.5, "Low", IndicatorDown},
		{0, "Low", IndicatorDown},
		{-5, "Low", IndicatorDown},
		{150, "Excellent", IndicatorUp},
	}
	for _, tt := range tests {
		band := BandFor(tt.score)
		assert.Equal(t, tt.label, band.Label, "score %v", tt.score)
		assert.Equal(t, tt.ind, band.Indicator, "score %v", tt.score)
	}
}

// rank orders bands, higher is better.
func rank(b Band) int {
	for i, candidate := range Bands {
		if candidate.Label == b.Label {
			return len(Bands) - i
		}
	}
	return 0
}

func TestBandFor_Monotonic(t *testing.T) {
	prev := rank(BandFor(0))
	for s := 0.0; s <= 100; s += 0.5 {
		rank := rank(BandFor(s))
		assert.GreaterOrEqual(t, rank, prev, "score %v", s)
		assert.Contains(t, Bands, BandFor(s))
		prev = rank
	}
}

func TestProgressWidth_Clamp(t *testing.T) {
	assert.Equal(t, 65.0, ProgressWidth(65))
	assert.Equal(t, 100.0, ProgressWidth(100))
	for _, s := range []float64{100.01, 120, 1e9, math.Inf(1)} {
		assert.Equal(t, 100.0, ProgressWidth(s), "score %v", s)
	}
	assert.Equal(t, 0.0, ProgressWidth(-10))
	assert.Equal(t, 0.0, ProgressWidth(math.NaN()))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "65", FormatScore(65))
	assert.Equal(t, "66.67", FormatScore(66.67))
	assert.Equal(t, "0", FormatScore(0))
}

func TestBadges_Positional(t *testing.T) {
	badges := Badges([]string{"Go", "Go"}, BadgeMissing)
	assert.Equal(t, []Badge{{"Go", BadgeMissing}, {"Go", BadgeMissing}}, badges)
	assert.Contains(t, BadgeMissing.Class(), "bg-red-100")
	assert.Contains(t, BadgeMatched.Class(), "bg-green-100")
	assert.Contains(t, BadgeDefault.Class(), "bg-gray-100")
	assert.Equal(t, BadgeDefault.Class(), BadgeVariant("unknown").Class())
}

func TestNewResultsView_EndToEnd(t *testing.T) {
	view := NewResultsView(session.WorkflowSession{
		FileName:        "resume.pdf",
		JobDescription:  "Need Python and AWS",
		ExtractedSkills: []string{"Python"},
		AnalysisResult: analysis.AnalysisResult{
			Score:           65,
			CandidateSkills: []string{"Python"},
			MatchedSkills:   []string{"Python"},
			MissingSkills:   []string{"AWS"},
			Suggestions:     "Learn AWS",
		},
	})

	assert.Equal(t, "Good", view.ScoreCard.Band.Label)
	assert.Equal(t, "65", view.ScoreCard.Display)
	assert.Equal(t, "65", view.ScoreCard.ProgressWidth)
	assert.Equal(t, []Badge{{"Python", BadgeMatched}}, view.MatchedSkills.Badges)
	assert.Equal(t, []Badge{{"AWS", BadgeMissing}}, view.MissingSkills.Badges)
	assert.Equal(t, []Badge{{"Python", BadgeDefault}}, view.CandidateSkills.Badges)
	assert.Equal(t, "Learn AWS", view.Suggestions)
	assert.Equal(t, 1, view.CandidateCount)
	assert.Equal(t, 1, view.MatchedCount)
	assert.Equal(t, 1, view.MissingCount)
	assert.False(t, view.NoSkillsDetected)
}

func TestNewResultsView_EmptyCandidateSkills(t *testing.T) {
	view := NewResultsView(session.WorkflowSession{
		AnalysisResult: analysis.AnalysisResult{Score: 130, MissingSkills: []string{"Go"}},
	})

	assert.True(t, view.NoSkillsDetected)
	assert.Empty(t, view.CandidateSkills.Badges)
	assert.Equal(t, EmptyCandidateSkills, view.CandidateSkills.EmptyText)
	assert.Equal(t, "100", view.ScoreCard.ProgressWidth)
	assert.Equal(t, "130", view.ScoreCard.Display)
}
