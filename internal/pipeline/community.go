package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/openpay/internal/cleanup"
	"github.com/jonathan/openpay/internal/db"
	"github.com/jonathan/openpay/internal/types"
)

// -----------------------------------------------------------------------------
// Community Methods
// -----------------------------------------------------------------------------

// AddSalary validates and stores a community submission, then drops the cached
// records so the next read includes it.
func (s *Service) AddSalary(ctx context.Context, sub types.SalarySubmission) (*types.SalaryRecord, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	if err := sub.Validate(); err != nil {
		return nil, &InvalidInputError{Message: "salary submission", Cause: err}
	}

	rec := sub.Record()
	if rec.Country == "" {
		rec.Country = s.cfg.Market.CommunityCountry
	}
	if err := s.checkPlausible(rec); err != nil {
		return nil, err
	}

	saved, err := s.store.InsertSalary(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to add salary: %w", err)
	}
	s.invalidate(ctx)
	s.logger.Info("community salary added", "id", saved.ID, "country", saved.Country)
	return saved, nil
}

// UpdateSalary applies patch to a community record.
func (s *Service) UpdateSalary(ctx context.Context, id string, patch db.SalaryPatch) (*types.SalaryRecord, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	if strings.TrimSpace(id) == "" {
		return nil, &InvalidInputError{Message: "salary id is required"}
	}
	if patch.Empty() {
		return nil, &InvalidInputError{Message: "update changes nothing"}
	}
	if patch.Compensation != nil && *patch.Compensation <= 0 {
		return nil, &InvalidInputError{Message: "compensation must be positive"}
	}
	if patch.Level != nil && !patch.Level.Valid() {
		return nil, &InvalidInputError{Message: fmt.Sprintf("unknown level %q", *patch.Level)}
	}
	if patch.Company != nil || patch.Location != nil || patch.Compensation != nil || patch.Country != nil {
		current, err := s.store.GetSalary(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to update salary %s: %w", id, err)
		}
		merged := patch.Apply(*current)
		if merged.Country == "" {
			merged.Country = s.cfg.Market.CommunityCountry
		}
		if err := s.checkPlausible(merged); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdateSalary(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update salary %s: %w", id, err)
	}
	s.invalidate(ctx)
	s.logger.Info("community salary updated", "id", id)
	return updated, nil
}

// DeleteSalary removes a community record.
func (s *Service) DeleteSalary(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	if strings.TrimSpace(id) == "" {
		return &InvalidInputError{Message: "salary id is required"}
	}
	if err := s.store.DeleteSalary(ctx, id); err != nil {
		return fmt.Errorf("failed to delete salary %s: %w", id, err)
	}
	s.invalidate(ctx)
	s.logger.Info("community salary deleted", "id", id)
	return nil
}

// checkPlausible rejects a record the normalizer would drop, so that no stored
// community record is silently excluded from the statistics.
func (s *Service) checkPlausible(rec types.SalaryRecord) error {
	reason, ok := s.normalize.Check(rec)
	if ok {
		return nil
	}
	if reason == cleanup.DropCompensationOutOfRange {
		return &InvalidInputError{Message: fmt.Sprintf("compensation %.0f is outside the plausible range for %s", rec.Compensation, rec.Country)}
	}
	return &InvalidInputError{Message: fmt.Sprintf("salary record rejected: %s", reason)}
}

// CommunitySalaries lists the cleaned community records, optionally of one country.
func (s *Service) CommunitySalaries(ctx context.Context, country string) ([]types.CleanedSalaryRecord, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	var (
		raw []types.SalaryRecord
		err error
	)
	if country = strings.TrimSpace(country); country != "" {
		raw, err = s.store.ListSalariesByCountry(ctx, country)
	} else {
		raw, err = s.store.ListSalaries(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list community salaries: %w", err)
	}
	cleaned, _ := cleanup.Normalize(raw, s.normalize)
	return cleaned, nil
}
