package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/llm"
	"github.com/jonathan/openpay/internal/types"
)

// stubClient returns a fixed answer and records the prompts it received.
type stubClient struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
	params  []llm.Params
}

func (s *stubClient) record(prompt string, p llm.Params) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	s.params = append(s.params, p)
	return s.answer, s.err
}

func (s *stubClient) GenerateContent(_ context.Context, prompt string, p llm.Params) (string, error) {
	return s.record(prompt, p)
}

func (s *stubClient) GenerateJSON(_ context.Context, prompt string, p llm.Params) (string, error) {
	return s.record(prompt, p)
}

func (s *stubClient) GetModel(llm.ModelTier) string { return "stub" }
func (s *stubClient) Close() error                  { return nil }

func (s *stubClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func newGateway(client llm.Client, opts ...Option) *Gateway {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(client, nil, opts...)
}

func off() *bool {
	b := false
	return &b
}

var knownTitles = []string{
	"Data Engineer", "Data Scientist", "Développeur Backend", "Backend Developer",
	"DevOps Engineer", "Développeur Java", "Java Developer", "Senior Java Developer",
	"Full Stack Developer", "SRE",
}

func TestResolveTitles_KeepsOnlyKnownTitles(t *testing.T) {
	client := &stubClient{answer: "```json\n{\"matches\": [\"Java Developer\", \"Développeur Java\", \"Java Ninja\", \"Java Developer\"], \"reasoning\": \"variantes\"}\n```"}
	g := newGateway(client)

	got := g.ResolveTitles(context.Background(), "java dev", knownTitles)

	assert.Equal(t, []string{"Java Developer", "Développeur Java"}, got)
	require.Equal(t, 1, client.calls())
	assert.Contains(t, client.prompts[0], `"java dev"`)
	assert.Contains(t, client.prompts[0], "1. Data Engineer")
	assert.Contains(t, client.prompts[0], "10. SRE")
}

func TestResolveTitles_CapsTitleList(t *testing.T) {
	client := &stubClient{answer: `{"matches": []}`}
	g := newGateway(client, WithMaxTitles(3))

	got := g.ResolveTitles(context.Background(), "data", knownTitles)

	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Contains(t, client.prompts[0], "2. Data Scientist\n3. Développeur Backend")
	assert.NotContains(t, client.prompts[0], "Backend Developer")
}

func TestResolveTitles_FallbackOnFailure(t *testing.T) {
	many := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		many = append(many, "Java Developer "+string(rune('A'+i)))
	}

	tests := []struct {
		name   string
		client *stubClient
	}{
		{"provider error", &stubClient{err: errors.New("quota exceeded")}},
		{"no json", &stubClient{answer: "Je ne sais pas."}},
		{"wrong shape", &stubClient{answer: `{"titles": ["Java Developer A"]}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newGateway(tt.client).ResolveTitles(context.Background(), "JAVA", many)
			assert.Len(t, got, FallbackTitleLimit)
			assert.Equal(t, "Java Developer A", got[0])
		})
	}
}

func TestResolveTitles_Disabled(t *testing.T) {
	client := &stubClient{answer: `{"matches": ["SRE"]}`}
	g := newGateway(client, WithFeatures(config.Features{NaturalLanguageSearch: off()}))

	got := g.ResolveTitles(context.Background(), "dev", knownTitles)

	assert.Equal(t, []string{"Développeur Backend", "Backend Developer", "DevOps Engineer", "Développeur Java",
		"Java Developer", "Senior Java Developer", "Full Stack Developer"}, got)
	assert.Zero(t, client.calls())
}

func TestResolveTitles_NoClientAndEmptyInput(t *testing.T) {
	g := newGateway(nil)
	assert.Equal(t, []string{"Data Engineer", "Data Scientist"}, g.ResolveTitles(context.Background(), "data", knownTitles))
	assert.Empty(t, g.ResolveTitles(context.Background(), "   ", knownTitles))
	assert.Empty(t, g.ResolveTitles(context.Background(), "data", nil))
}

func TestParseDescription(t *testing.T) {
	client := &stubClient{answer: `{"suggestions": [
		{"title": "Développeur Frontend", "confidence": 70},
		{"title": "Développeur Full Stack", "confidence": 92, "reasoning": "React et Node"},
		{"title": "Développeur Mobile", "confidence": 61},
		{"title": "Intégrateur Web", "confidence": 65}
	]}`}
	g := newGateway(client)

	got := g.ParseDescription(context.Background(), "je fais du react et du node, 3 ans d'xp")

	require.Len(t, got, MaxSuggestions)
	assert.Equal(t, "Développeur Full Stack", got[0].Title)
	assert.Equal(t, 92.0, got[0].Confidence)
	assert.Equal(t, "Développeur Frontend", got[1].Title)
	assert.Equal(t, "Intégrateur Web", got[2].Title)
	assert.Contains(t, client.prompts[0], "je fais du react et du node")
}

func TestParseDescription_Failures(t *testing.T) {
	tests := []struct {
		name string
		g    *Gateway
		text string
	}{
		{"out of range confidence", newGateway(&stubClient{answer: `{"suggestions": [{"title": "Dev", "confidence": 150}]}`}), "react"},
		{"provider error", newGateway(&stubClient{err: errors.New("boom")}), "react"},
		{"empty description", newGateway(&stubClient{answer: `{"suggestions": []}`}), "  "},
		{"disabled", newGateway(&stubClient{answer: `{"suggestions": [{"title": "Dev", "confidence": 90}]}`},
			WithFeatures(config.Features{NaturalLanguageSearch: off()})), "react"},
		{"no client", newGateway(nil), "react"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.g.ParseDescription(context.Background(), tt.text)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestMatchSkills(t *testing.T) {
	client := &stubClient{answer: `{"matches": [
		{"jobTitle": "Développeur Frontend React", "compatibilityScore": 64, "recommendedRoadmaps": ["https://roadmap.sh/react"]},
		{"jobTitle": "Développeur Backend Node.js", "compatibilityScore": 78,
		 "matchedSkills": ["JavaScript", "Node.js"], "missingSkills": ["Docker"],
		 "recommendedRoadmaps": ["https://roadmap.sh/nodejs", "https://roadmap.sh/not-a-path", "https://evil.example/x", "https://roadmap.sh/docker"],
		 "reasoning": "Bonne base JavaScript", "averageSalary": 99999},
		{"jobTitle": "Développeur Full Stack", "compatibilityScore": 71},
		{"jobTitle": "Intégrateur", "compatibilityScore": 56}
	]}`}
	g := newGateway(client)
	xp := 2

	got := g.MatchSkills(context.Background(), types.UserSkills{
		Technologies:   []string{"JavaScript", "Node.js"},
		Education:      "Licence informatique",
		Experience:     &xp,
		AdditionalInfo: "projets perso",
	})

	require.Len(t, got, MaxMatches)
	assert.Equal(t, "Développeur Backend Node.js", got[0].JobTitle)
	assert.Equal(t, []string{"https://roadmap.sh/nodejs", "https://roadmap.sh/docker"}, got[0].RecommendedRoadmaps)
	assert.Zero(t, got[0].AverageSalary)
	assert.Equal(t, "Développeur Full Stack", got[1].JobTitle)
	assert.Equal(t, []string{}, got[1].MatchedSkills)
	assert.Equal(t, []string{}, got[1].RecommendedRoadmaps)
	assert.Equal(t, "Développeur Frontend React", got[2].JobTitle)

	prompt := client.prompts[0]
	assert.Contains(t, prompt, "JavaScript, Node.js")
	assert.Contains(t, prompt, "Licence informatique")
	assert.Contains(t, prompt, "2 an(s)")
	assert.Contains(t, prompt, "projets perso")
	assert.Contains(t, prompt, "https://roadmap.sh/devops")
}

func TestMatchSkills_Failures(t *testing.T) {
	skills := types.UserSkills{Technologies: []string{"Go"}, Education: "Master"}

	assert.Empty(t, newGateway(&stubClient{answer: `{"matches": [{"jobTitle": "SRE", "compatibilityScore": 101}]}`}).
		MatchSkills(context.Background(), skills))
	assert.Empty(t, newGateway(&stubClient{answer: "pas de JSON"}).MatchSkills(context.Background(), skills))
	assert.Empty(t, newGateway(&stubClient{answer: `{"matches": []}`},
		WithFeatures(config.Features{JobMatcher: off()})).MatchSkills(context.Background(), skills))
	assert.Empty(t, newGateway(&stubClient{}).MatchSkills(context.Background(), types.UserSkills{Education: "Master"}))
}
