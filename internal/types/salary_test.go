package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_Valid(t *testing.T) {
	tests := []struct {
		level Level
		want  bool
	}{
		{LevelJunior, true},
		{LevelMid, true},
		{LevelSenior, true},
		{LevelLead, true},
		{Level("Principal"), false},
		{Level(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.Valid())
		})
	}
}

func TestSalaryRecord_UpstreamFieldNames(t *testing.T) {
	payload := `{
		"company": "Acme",
		"title": "Développeur Backend",
		"location": "Paris",
		"compensation": 52000,
		"date": "2024-03-01T10:00:00Z",
		"level": "Mid",
		"company_xp": 2,
		"total_xp": 4,
		"remote": {"variant": "partial", "dayCount": 2, "base": "week"}
	}`

	var rec SalaryRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	require.NotNil(t, rec.Title)
	assert.Equal(t, "Développeur Backend", *rec.Title)
	require.NotNil(t, rec.CompanyXP)
	assert.Equal(t, 2, *rec.CompanyXP)
	require.NotNil(t, rec.TotalXP)
	assert.Equal(t, 4, *rec.TotalXP)
	require.NotNil(t, rec.Remote)
	assert.Equal(t, RemotePartial, rec.Remote.Variant)
	require.NotNil(t, rec.Remote.DayCount)
	assert.Equal(t, 2, *rec.Remote.DayCount)
	assert.Empty(t, rec.Country)
	assert.Empty(t, rec.Source)
}

func TestCleanedSalaryRecord_Raw(t *testing.T) {
	companyXP := 1
	cleaned := CleanedSalaryRecord{
		ID:           "abc",
		Company:      "Acme",
		Title:        "Data Engineer",
		Location:     "Lyon",
		Compensation: 48000,
		Level:        LevelMid,
		CompanyXP:    &companyXP,
		TotalXP:      3,
		Source:       SourceCommunity,
		Country:      "France",
	}

	raw := cleaned.Raw()
	require.NotNil(t, raw.Title)
	assert.Equal(t, "Data Engineer", *raw.Title)
	require.NotNil(t, raw.Level)
	assert.Equal(t, LevelMid, *raw.Level)
	require.NotNil(t, raw.TotalXP)
	assert.Equal(t, 3, *raw.TotalXP)
	assert.Equal(t, SourceCommunity, raw.Source)
	assert.Equal(t, "France", raw.Country)

	// the raw copy must not alias the cleaned record's fields
	*raw.Title = "changed"
	assert.Equal(t, "Data Engineer", cleaned.Title)
}
