package server

import (
	"net/http"

	"github.com/jonathan/openpay/internal/db"
	"github.com/jonathan/openpay/internal/types"
)

// handleAddSalary stores a community submission. It needs no token.
func (s *Server) handleAddSalary(w http.ResponseWriter, r *http.Request) {
	var sub types.SalarySubmission
	if err := decodeJSON(w, r, &sub); err != nil {
		s.failure(w, r, err)
		return
	}

	saved, err := s.service.AddSalary(r.Context(), sub)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateSalary(w http.ResponseWriter, r *http.Request) {
	var patch db.SalaryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.failure(w, r, err)
		return
	}

	updated, err := s.service.UpdateSalary(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSalary(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSalary(r.Context(), r.PathValue("id")); err != nil {
		s.failure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh drops the cached records and reloads them.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.Refresh(r.Context())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.logger.Info("cache refreshed on request", "records", n)
	s.jsonResponse(w, http.StatusOK, RefreshResponse{Records: n})
}

// handleToken exchanges the moderator password for a bearer token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil || s.passwords == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "moderation is not configured")
		return
	}

	var req types.TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	ok, err := s.passwords.VerifyModerator(req.Password, s.cfg.ModeratorPasswordHash)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if !ok {
		s.logger.Warn("moderator login rejected", "remote", s.extractClientID(r))
		s.failure(w, r, &ErrInvalidCredentials{})
		return
	}

	token, err := s.tokens.GenerateToken(RoleModerator)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, types.TokenResponse{
		Token:     token,
		ExpiresIn: int64(s.tokens.config.Expiration().Seconds()),
	})
}
