package analyzer

import "strings"

// Band classifies a match percentage. The same thresholds drive suggestion
// text and display colors.
type Band string

const (
	BandPoor      Band = "poor"
	BandModerate  Band = "moderate"
	BandGood      Band = "good"
	BandExcellent Band = "excellent"
)

// Band thresholds, as lower bounds in percent.
const (
	moderateThreshold  = 30
	goodThreshold      = 50
	excellentThreshold = 70
)

// maxListedMissing is how many missing keywords the suggestion lists.
const maxListedMissing = 5

var bandMessages = map[Band]string{
	BandPoor:      "Your resume has very low keyword match. Consider tailoring it more closely to the job description.",
	BandModerate:  "Your resume has moderate keyword match. Try incorporating more relevant skills and technologies.",
	BandGood:      "Good keyword match! Add a few more specific skills to improve further.",
	BandExcellent: "Excellent keyword match! Your resume aligns well with the job description.",
}

var generalSuggestions = []string{
	"Quantify your achievements with numbers and metrics where possible.",
	"Use action verbs at the start of each bullet point.",
	"Ensure your resume is ATS-friendly with clear formatting.",
}

// BandFor returns the band a match percentage falls into.
func BandFor(percentage int) Band {
	switch {
	case percentage < moderateThreshold:
		return BandPoor
	case percentage < goodThreshold:
		return BandModerate
	case percentage < excellentThreshold:
		return BandGood
	default:
		return BandExcellent
	}
}

// GenerateSuggestions returns the advisory messages for a report: one banded
// message, an optional list of up to five missing keywords in the given
// order, and three general suggestions.
func GenerateSuggestions(matchPercentage int, missingKeywords []string) []string {
	suggestions := make([]string, 0, 2+len(generalSuggestions))
	suggestions = append(suggestions, bandMessages[BandFor(matchPercentage)])

	if len(missingKeywords) > 0 {
		top := missingKeywords
		if len(top) > maxListedMissing {
			top = top[:maxListedMissing]
		}
		suggestions = append(suggestions, "Consider adding these keywords: "+strings.Join(top, ", "))
	}

	return append(suggestions, generalSuggestions...)
}
