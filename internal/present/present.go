package present

import (
	"math"
	"strconv"

	"resumeMatch/internal/session"
)

// Band is a score category with its display classes.
type Band struct {
	Label      string
	ColorClass string
	BarClass   string
	Indicator  Indicator
}

// Indicator is the direction icon shown next to the score.
type Indicator string

const (
	IndicatorUp   Indicator = "up"
	IndicatorFlat Indicator = "flat"
	IndicatorDown Indicator = "down"
)

var (
	BandExcellent = Band{Label: "Excellent", ColorClass: "text-green-600 bg-green-50 border-green-200", BarClass: "bg-green-500", Indicator: IndicatorUp}
	BandGood      = Band{Label: "Good", ColorClass: "text-blue-600 bg-blue-50 border-blue-200", BarClass: "bg-blue-500", Indicator: IndicatorUp}
	BandModerate  = Band{Label: "Moderate", ColorClass: "text-yellow-600 bg-yellow-50 border-yellow-200", BarClass: "bg-yellow-500", Indicator: IndicatorFlat}
	BandLow       = Band{Label: "Low", ColorClass: "text-red-600 bg-red-50 border-red-200", BarClass: "bg-red-500", Indicator: IndicatorDown}
)

// Bands in descending order of quality.
var Bands = []Band{BandExcellent, BandGood, BandModerate, BandLow}

// BandFor maps a score to its band. Thresholds are inclusive at 80, 60 and 40.
func BandFor(score float64) Band {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 60:
		return BandGood
	case score >= 40:
		return BandModerate
	default:
		return BandLow
	}
}

// ProgressWidth is the bar fill in percent, clamped to [0,100].
func ProgressWidth(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	return math.Min(score, 100)
}

// FormatScore renders the shortest decimal form, e.g. 65 or 66.67.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// BadgeVariant styles a skill by the list it is rendered in.
type BadgeVariant string

const (
	BadgeDefault BadgeVariant = "default"
	BadgeMatched BadgeVariant = "matched"
	BadgeMissing BadgeVariant = "missing"
)

const badgeBaseClass = "inline-flex items-center px-3 py-1 rounded-full text-sm font-medium"

// Class returns the badge's CSS classes.
func (v BadgeVariant) Class() string {
	switch v {
	case BadgeMatched:
		return badgeBaseClass + " bg-green-100 text-green-800"
	case BadgeMissing:
		return badgeBaseClass + " bg-red-100 text-red-800"
	default:
		return badgeBaseClass + " bg-gray-100 text-gray-800"
	}
}

// Badge is one rendered skill.
type Badge struct {
	Skill   string
	Variant BadgeVariant
}

// Badges tags every skill with the list's variant. Membership is never recomputed.
func Badges(skills []string, variant BadgeVariant) []Badge {
	out := make([]Badge, 0, len(skills))
	for _, skill := range skills {
		out = append(out, Badge{Skill: skill, Variant: variant})
	}
	return out
}

// Empty-state texts for the three skill lists.
const (
	EmptyCandidateSkills = "No skills detected in your resume"
	EmptyMatchedSkills   = "No skills matched with the job requirements"
	EmptyMissingSkills   = "All required skills are present! 🎉"
)

// SkillList is a titled badge list with its empty-state text.
type SkillList struct {
	Title      string
	Badges     []Badge
	EmptyText  string
	EmptyClass string
}

// ScoreCard is the score header of the results page.
type ScoreCard struct {
	Score         float64
	Display       string
	Band          Band
	ProgressWidth string
}

// ResultsView is everything the results page renders.
type ResultsView struct {
	FileName         string
	JobDescription   string
	ScoreCard        ScoreCard
	CandidateSkills  SkillList
	MatchedSkills    SkillList
	MissingSkills    SkillList
	Suggestions      string
	CandidateCount   int
	MatchedCount     int
	MissingCount     int
	NoSkillsDetected bool
}

// NewResultsView derives the view model from a hydrated session.
func NewResultsView(ws session.WorkflowSession) ResultsView {
	result := ws.AnalysisResult
	return ResultsView{
		FileName:       ws.FileName,
		JobDescription: ws.JobDescription,
		ScoreCard: ScoreCard{
			Score:         result.Score,
			Display:       FormatScore(result.Score),
			Band:          BandFor(result.Score),
			ProgressWidth: FormatScore(ProgressWidth(result.Score)),
		},
		CandidateSkills: SkillList{
			Title:      "Your Skills",
			Badges:     Badges(result.CandidateSkills, BadgeDefault),
			EmptyText:  EmptyCandidateSkills,
			EmptyClass: "text-gray-500",
		},
		MatchedSkills: SkillList{
			Title:      "Matched Skills",
			Badges:     Badges(result.MatchedSkills, BadgeMatched),
			EmptyText:  EmptyMatchedSkills,
			EmptyClass: "text-gray-500",
		},
		MissingSkills: SkillList{
			Title:      "Missing Skills",
			Badges:     Badges(result.MissingSkills, BadgeMissing),
			EmptyText:  EmptyMissingSkills,
			EmptyClass: "text-green-600 font-medium",
		},
		Suggestions:      result.Suggestions,
		CandidateCount:   len(result.CandidateSkills),
		MatchedCount:     len(result.MatchedSkills),
		MissingCount:     len(result.MissingSkills),
		NoSkillsDetected: len(result.CandidateSkills) == 0,
	}
}
