package fetch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonathan/openpay/internal/types"
)

// SalaryAPI is the client of the public salary API, which answers a single GET
// with a JSON array of raw records.
type SalaryAPI struct {
	Endpoint string
	Options  *Options
}

// NewSalaryAPI creates a client for endpoint with the given per-request timeout.
func NewSalaryAPI(endpoint string, timeout time.Duration) *SalaryAPI {
	opts := DefaultOptions()
	if timeout > 0 {
		opts.Timeout = timeout
	}
	opts.Headers = map[string]string{"Accept": "application/json"}
	return &SalaryAPI{Endpoint: endpoint, Options: opts}
}

// FetchAll downloads every record. Records without a source are tagged as coming
// from the public API.
func (a *SalaryAPI) FetchAll(ctx context.Context) ([]types.SalaryRecord, error) {
	result, err := Get(ctx, a.Endpoint, a.Options)
	if err != nil {
		return nil, err
	}

	var records []types.SalaryRecord
	if err := json.Unmarshal(result.Body, &records); err != nil {
		return nil, &Error{
			URL:        a.Endpoint,
			Message:    "failed to decode salary records",
			StatusCode: result.StatusCode,
			Cause:      err,
		}
	}

	for i := range records {
		if records[i].Source == "" {
			records[i].Source = types.SourceSalairesDev
		}
	}
	return records, nil
}
