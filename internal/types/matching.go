package types

import "time"

// UserSkills is the profile submitted to the job matcher.
type UserSkills struct {
	Technologies   []string `json:"technologies" validate:"required,min=1,dive,required"`
	Education      string   `json:"education" validate:"required"`
	Experience     *int     `json:"experience,omitempty" validate:"omitempty,min=0"`
	AdditionalInfo string   `json:"additionalInfo,omitempty"`
}

// JobSuggestion is one ranked title proposed for a free-text self-description.
type JobSuggestion struct {
	Title      string  `json:"title" validate:"required"`
	Confidence float64 `json:"confidence" validate:"min=0,max=100"`
	Reasoning  string  `json:"reasoning"`
}

// JobMatchResult is one ranked job recommendation for a skills profile.
// AverageSalary is computed locally from the record set.
type JobMatchResult struct {
	JobTitle            string   `json:"jobTitle" validate:"required"`
	CompatibilityScore  float64  `json:"compatibilityScore" validate:"min=0,max=100"`
	AverageSalary       float64  `json:"averageSalary"`
	MatchedSkills       []string `json:"matchedSkills"`
	MissingSkills       []string `json:"missingSkills"`
	RecommendedRoadmaps []string `json:"recommendedRoadmaps"`
	Reasoning           string   `json:"reasoning"`
}

// JobMatcherResponse is the result of a skills match.
type JobMatcherResponse struct {
	Matches     []JobMatchResult `json:"matches"`
	GeneratedAt time.Time        `json:"generatedAt"`
}
