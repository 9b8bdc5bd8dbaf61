package analyzer

import (
	"math"
	"strings"
)

// Report is the result of comparing a resume against a job description.
type Report struct {
	MatchPercentage int      `json:"match_percentage"`
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
	Suggestions     []string `json:"suggestions"`
}

// Band returns the banding of the report's match percentage.
func (r Report) Band() Band {
	return BandFor(r.MatchPercentage)
}

// TotalKeywords returns the size of the job-description keyword set the
// report was computed from.
func (r Report) TotalKeywords() int {
	return len(r.MatchedKeywords) + len(r.MissingKeywords)
}

// Analyze extracts keywords from jobDescription and partitions them into
// those found in resumeText (case-insensitive substring) and those missing.
// Empty inputs are valid and produce a 0% report.
func Analyze(resumeText, jobDescription string) Report {
	keywords := ExtractKeywords(jobDescription)
	resumeLower := strings.ToLower(resumeText)

	matched := make([]string, 0, len(keywords))
	missing := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if strings.Contains(resumeLower, keyword) {
			matched = append(matched, keyword)
		} else {
			missing = append(missing, keyword)
		}
	}

	percentage := MatchPercentage(len(matched), len(keywords))

	return Report{
		MatchPercentage: percentage,
		MatchedKeywords: matched,
		MissingKeywords: missing,
		Suggestions:     GenerateSuggestions(percentage, missing),
	}
}

// MatchPercentage returns matched/total as an integer percentage rounded half
// up. A zero total yields 0.
func MatchPercentage(matched, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(matched)/float64(total)*100 + 0.5))
}
