package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// SalarySubmission is a community-contributed salary as entered by a visitor.
type SalarySubmission struct {
	Company      string        `json:"company" validate:"required,max=200"`
	Title        string        `json:"title" validate:"required,max=200"`
	Location     string        `json:"location" validate:"required,max=200"`
	Compensation float64       `json:"compensation" validate:"gt=0"`
	Level        *Level        `json:"level,omitempty" validate:"omitempty,oneof=Junior Mid Senior Lead"`
	CompanyXP    *int          `json:"company_xp,omitempty" validate:"omitempty,min=0,max=60"`
	TotalXP      *int          `json:"total_xp,omitempty" validate:"omitempty,min=0,max=60"`
	Remote       *RemoteConfig `json:"remote,omitempty"`
	Country      string        `json:"country,omitempty" validate:"max=100"`
	Date         string        `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// Validate validates the SalarySubmission using the validator.
func (s *SalarySubmission) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return err
	}
	if s.Remote != nil {
		return validate.Var(string(s.Remote.Variant), "oneof=none partial full")
	}
	return nil
}

// Record converts the submission into a raw record with trimmed text fields.
func (s *SalarySubmission) Record() SalaryRecord {
	title := strings.TrimSpace(s.Title)
	return SalaryRecord{
		Company:      strings.TrimSpace(s.Company),
		Title:        &title,
		Location:     strings.TrimSpace(s.Location),
		Compensation: s.Compensation,
		Date:         s.Date,
		Level:        s.Level,
		CompanyXP:    s.CompanyXP,
		TotalXP:      s.TotalXP,
		Remote:       s.Remote,
		Source:       SourceCommunity,
		Country:      strings.TrimSpace(s.Country),
	}
}

// Validate validates the UserSkills using the validator.
func (u *UserSkills) Validate() error {
	validate := validator.New()
	return validate.Struct(u)
}

// DescribeRequest carries a free-text self-description.
type DescribeRequest struct {
	Description string `json:"description" validate:"required,min=3,max=2000"`
}

// Validate validates the DescribeRequest using the validator.
func (r *DescribeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// TokenRequest exchanges the moderator password for a bearer token.
type TokenRequest struct {
	Password string `json:"password" validate:"required"`
}

// Validate validates the TokenRequest using the validator.
func (r *TokenRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// TokenResponse is the issued moderator token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}
