package analyzer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractKeywords_Empty(t *testing.T) {
	keywords := ExtractKeywords("")
	assert.Empty(t, keywords)
	assert.NotNil(t, keywords)
}

func TestExtractKeywords_VocabularyThenTokensThenPhrases(t *testing.T) {
	jd := "We need a React developer with AWS and Agile experience. Machine Learning is a plus."

	got := ExtractKeywords(jd)

	assert.Equal(t, KeywordSet{"react", "aws", "agile", "machine learning", "machine", "learning"}, got)
}

func TestExtractKeywords_VocabularyIsCaseInsensitive(t *testing.T) {
	got := ExtractKeywords("experience with DOCKER, kubernetes and PostgreSQL")

	assert.True(t, got.Contains("docker"))
	assert.True(t, got.Contains("kubernetes"))
	assert.True(t, got.Contains("postgresql"))
}

func TestExtractKeywords_CapitalizedTokens(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []string
		notWant []string
	}{
		{
			name: "product name with dot",
			text: "built services in Node.js daily",
			want: []string{"node.js"},
		},
		{
			name: "acronym",
			text: "deployed on GCP clusters",
			want: []string{"gcp"},
		},
		{
			name:    "two letter tokens are dropped",
			text:    "we use Go at scale",
			notWant: []string{"go"},
		},
		{
			name: "mixed case product",
			text: "strong Kotlin and Terraform skills",
			want: []string{"kotlin", "terraform"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.text)
			for _, w := range tt.want {
				assert.Truef(t, got.Contains(w), "expected %q in %v", w, got)
			}
			for _, w := range tt.notWant {
				assert.Falsef(t, got.Contains(w), "did not expect %q in %v", w, got)
			}
		})
	}
}

func TestExtractKeywords_TitleCasePhrases(t *testing.T) {
	got := ExtractKeywords("Experience with Project Management and Data Science Tools required")

	assert.True(t, got.Contains("project management"))
	assert.True(t, got.Contains("data science tools"))
}

func TestExtractKeywords_TitleCasePhrasesAcrossUnicodeSpaces(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"no-break space", "strong Machine\u00a0Learning background", "machine\u00a0learning"},
		{"vertical tab", "strong Deep\vLearning background", "deep\vlearning"},
		{"ideographic space", "strong Site\u3000Reliability background", "site\u3000reliability"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.text)
			assert.True(t, got.Contains(tt.want), "keywords = %q", got)
		})
	}
}

func TestExtractKeywords_NoDuplicates(t *testing.T) {
	got := ExtractKeywords("React react REACT React. Docker Docker docker")

	seen := make(map[string]bool)
	for _, k := range got {
		assert.Falsef(t, seen[k], "duplicate keyword %q", k)
		seen[k] = true
	}
}

func TestExtractKeywords_CapsAtMaxKeywords(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "Tok%d ", i)
	}

	got := ExtractKeywords(b.String())

	require.Len(t, got, MaxKeywords)
	assert.Equal(t, "tok0", got[0])
	assert.Equal(t, "tok49", got[MaxKeywords-1])
}

func TestExtractKeywords_AlwaysLowercaseAndBounded(t *testing.T) {
	inputs := []string{
		"",
		"Senior Go Engineer",
		"ÉCOLE Straße Zürich Kubernetes",
		"\x00\xff\xfe binary \x01 JUNK",
		strings.Repeat("Alpha Beta Gamma Delta Epsilon ", 40),
		"C++ C# F# .NET ASP.NET Node.js Vue.js",
	}

	for _, in := range inputs {
		got := ExtractKeywords(in)
		assert.LessOrEqual(t, got.Len(), MaxKeywords)
		for _, k := range got {
			assert.Equal(t, strings.ToLower(k), k)
		}
	}
}

func TestKeywordSet_Contains(t *testing.T) {
	set := KeywordSet{"react", "machine learning"}

	assert.True(t, set.Contains("React"))
	assert.True(t, set.Contains("MACHINE LEARNING"))
	assert.False(t, set.Contains("machine"))
}

func TestVocabulary_ReturnsCopy(t *testing.T) {
	v := Vocabulary()
	require.NotEmpty(t, v)
	v[0] = "mutated"

	assert.Equal(t, "react", Vocabulary()[0])
}
