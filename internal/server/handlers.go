package server

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/jonathan/openpay/internal/pipeline"
	"github.com/jonathan/openpay/internal/types"
)

// SalariesResponse is the body of the salary listings.
type SalariesResponse struct {
	Count    int                         `json:"count"`
	Salaries []types.CleanedSalaryRecord `json:"salaries"`
}

// TitlesResponse is the body of /titles and /titles/suggest.
type TitlesResponse struct {
	Titles []string `json:"titles"`
}

// SuggestionsResponse is the body of /jobs/describe.
type SuggestionsResponse struct {
	Suggestions []types.JobSuggestion `json:"suggestions"`
}

// RefreshResponse is the body of /cache/refresh.
type RefreshResponse struct {
	Records int `json:"records"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSalaries lists the cleaned records matching the query filters.
func (s *Server) handleSalaries(w http.ResponseWriter, r *http.Request) {
	f, err := parseSalaryFilter(r.URL.Query())
	if err != nil {
		s.failure(w, r, err)
		return
	}

	records, err := s.service.Salaries(r.Context(), f)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SalariesResponse{Count: len(records), Salaries: records})
}

// handleCommunitySalaries lists the community records, optionally of one country.
func (s *Server) handleCommunitySalaries(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.CommunitySalaries(r.Context(), r.URL.Query().Get("country"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SalariesResponse{Count: len(records), Salaries: records})
}

func (s *Server) handleTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := s.service.Titles(r.Context())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, TitlesResponse{Titles: titles})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.failure(w, r, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	titles, err := s.service.Suggest(r.Context(), q.Get("q"), limit)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, TitlesResponse{Titles: titles})
}

// handleStatistics computes the salary report of the job in the query.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	job := strings.TrimSpace(r.URL.Query().Get("job"))
	if job == "" {
		s.failure(w, r, &ErrValidation{Field: "job", Message: "required"})
		return
	}

	report, err := s.service.Search(r.Context(), job)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// handleStatisticsStream computes the same report as handleStatistics and streams
// each search step as a server-sent event.
func (s *Server) handleStatisticsStream(w http.ResponseWriter, r *http.Request) {
	job := strings.TrimSpace(r.URL.Query().Get("job"))
	if job == "" {
		s.failure(w, r, &ErrValidation{Field: "job", Message: "required"})
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	report, err := s.service.SearchWithProgress(r.Context(), job, func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.logger.Debug("progress event not delivered", "error", err)
		}
	})
	if err != nil {
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("streamed search failed", "job", job, "error", err)
		}
		sse.WriteError(status, errorMessage(err))
		return
	}
	sse.WriteComplete(report)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	var req types.DescribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	suggestions, err := s.service.ParseDescription(r.Context(), req.Description)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var skills types.UserSkills
	if err := decodeJSON(w, r, &skills); err != nil {
		s.failure(w, r, err)
		return
	}

	resp, err := s.service.MatchJobs(r.Context(), skills)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// parseSalaryFilter reads the listing filters. List parameters may be repeated
// or comma-separated.
func parseSalaryFilter(q url.Values) (types.SalaryFilter, error) {
	f := types.SalaryFilter{
		Titles:    listParam(q, "title"),
		Locations: listParam(q, "location"),
		Country:   strings.TrimSpace(q.Get("country")),
	}

	var err error
	if f.MinCompensation, err = floatParam(q, "min"); err != nil {
		return f, err
	}
	if f.MaxCompensation, err = floatParam(q, "max"); err != nil {
		return f, err
	}
	if f.MinExperience, err = intParam(q, "minXp"); err != nil {
		return f, err
	}
	if f.MaxExperience, err = intParam(q, "maxXp"); err != nil {
		return f, err
	}

	for _, raw := range listParam(q, "level") {
		level := types.Level(raw)
		if !level.Valid() {
			return f, &ErrValidation{Field: "level", Message: "unknown level " + raw}
		}
		f.Levels = append(f.Levels, level)
	}
	for _, raw := range listParam(q, "remote") {
		variant := types.RemoteVariant(raw)
		if !slices.Contains(types.RemoteVariants, variant) {
			return f, &ErrValidation{Field: "remote", Message: "unknown remote variant " + raw}
		}
		f.RemoteVariants = append(f.RemoteVariants, variant)
	}
	return f, nil
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func floatParam(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &ErrValidation{Field: key, Message: "must be a number"}
	}
	return &v, nil
}

func intParam(q url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &ErrValidation{Field: key, Message: "must be an integer"}
	}
	return &v, nil
}
