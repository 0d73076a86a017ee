package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/types"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func levelPtr(l types.Level) *types.Level { return &l }

func TestNormalize_DropsInvalidRecords(t *testing.T) {
	raw := []types.SalaryRecord{
		{Company: "A", Location: "Paris", Compensation: 50000},
		{Company: "  ", Location: "Paris", Compensation: 50000},
		{Company: "B", Location: "", Compensation: 50000},
		{Company: "C", Location: "Lyon", Compensation: 0},
		{Company: "D", Location: "Lyon", Compensation: -10},
		{Company: "E", Location: "Lyon", Compensation: 1000},
		{Company: "F", Location: "Lyon", Compensation: 60_000_000},
		{Company: "G", Location: "Douala", Compensation: 50000, Country: "Cameroun"},
		{Company: "H", Location: "Douala", Compensation: 6_000_000, Country: "Cameroun"},
	}

	out, report := Normalize(raw, DefaultOptions())

	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Company)
	assert.Equal(t, "H", out[1].Company)

	assert.Equal(t, 9, report.Input)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 7, report.DroppedTotal())
	assert.Equal(t, 1, report.Dropped[DropMissingCompany])
	assert.Equal(t, 1, report.Dropped[DropMissingLocation])
	assert.Equal(t, 2, report.Dropped[DropNonPositiveCompensation])
	assert.Equal(t, 3, report.Dropped[DropCompensationOutOfRange])
}

func TestNormalize_BandBoundariesAreInclusive(t *testing.T) {
	raw := []types.SalaryRecord{
		{Company: "A", Location: "X", Compensation: 1_500},
		{Company: "B", Location: "X", Compensation: 50_000_000},
		{Company: "C", Location: "X", Compensation: 100_000, Country: "Cameroun"},
		{Company: "D", Location: "X", Compensation: 1_000_000_000, Country: "Cameroun"},
	}

	out, _ := Normalize(raw, DefaultOptions())
	assert.Len(t, out, 4)
}

func TestNormalize_ConfigurableBands(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultBand = config.CompensationBand{Min: 10_000, Max: 200_000}

	raw := []types.SalaryRecord{
		{Company: "A", Location: "X", Compensation: 5_000},
		{Company: "B", Location: "X", Compensation: 90_000},
	}

	out, _ := Normalize(raw, opts)
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].Company)
}

func TestNormalize_FillsDefaults(t *testing.T) {
	raw := []types.SalaryRecord{
		{Company: "A", Location: "Paris", Compensation: 42000},
		{Company: "B", Location: "Paris", Compensation: 42000, Title: strPtr("   ")},
		{
			Company: "C", Location: "Douala", Compensation: 9_000_000,
			Title: strPtr(" Data Scientist "), Country: "Cameroun", Source: types.SourceCommunity,
			Level: levelPtr(types.LevelLead),
		},
	}

	out, _ := Normalize(raw, DefaultOptions())
	require.Len(t, out, 3)

	assert.Equal(t, "Poste non spécifié", out[0].Title)
	assert.Equal(t, "France", out[0].Country)
	assert.Equal(t, types.SourceSalairesDev, out[0].Source)
	assert.Equal(t, types.LevelJunior, out[0].Level)
	assert.Equal(t, 0, out[0].TotalXP)

	assert.Equal(t, "Poste non spécifié", out[1].Title)

	assert.Equal(t, "Data Scientist", out[2].Title)
	assert.Equal(t, "Cameroun", out[2].Country)
	assert.Equal(t, types.SourceCommunity, out[2].Source)
	assert.Equal(t, types.LevelLead, out[2].Level, "a declared level is kept")
}

func TestNormalize_TotalXPFallback(t *testing.T) {
	tests := []struct {
		name      string
		totalXP   *int
		companyXP *int
		want      int
	}{
		{"total present", intPtr(7), intPtr(2), 7},
		{"falls back to company xp", nil, intPtr(4), 4},
		{"falls back to zero", nil, nil, 0},
		{"negative clamps to zero", intPtr(-3), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []types.SalaryRecord{{
				Company: "A", Location: "X", Compensation: 40000,
				TotalXP: tt.totalXP, CompanyXP: tt.companyXP,
			}}
			out, _ := Normalize(raw, DefaultOptions())
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].TotalXP)
		})
	}
}

func TestEstimateLevel_Monotonic(t *testing.T) {
	for xp := 0; xp <= 40; xp++ {
		got := EstimateLevel(xp)
		switch {
		case xp <= 2:
			assert.Equal(t, types.LevelJunior, got, "xp=%d", xp)
		case xp <= 5:
			assert.Equal(t, types.LevelMid, got, "xp=%d", xp)
		default:
			assert.Equal(t, types.LevelSenior, got, "xp=%d", xp)
		}
	}
}

func TestNormalize_NeverGrows(t *testing.T) {
	raw := []types.SalaryRecord{
		{Company: "A", Location: "X", Compensation: 1},
		{Company: "B", Location: "X", Compensation: 40000},
		{Company: "C", Location: "X", Compensation: 99_000_000},
	}
	out, _ := Normalize(raw, DefaultOptions())
	assert.LessOrEqual(t, len(out), len(raw))
	for _, rec := range out {
		assert.Equal(t, 40000.0, rec.Compensation, "out-of-range values are dropped, not clamped")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := []types.SalaryRecord{
		{ID: "1", Company: "A", Location: "Paris", Compensation: 42000, CompanyXP: intPtr(3)},
		{Company: "B", Location: "Lyon", Compensation: 61000, Title: strPtr("  Lead Dev "), TotalXP: intPtr(12),
			Remote: &types.RemoteConfig{Variant: types.RemoteFull}},
		{Company: "C", Location: "Douala", Compensation: 4_000_000, Country: "Cameroun",
			Level: levelPtr(types.Level("Staff")), TotalXP: intPtr(-1)},
		{Company: "", Location: "Nowhere", Compensation: 42000},
	}

	once, _ := Normalize(raw, DefaultOptions())
	twice, report := Renormalize(once, DefaultOptions())

	assert.Equal(t, once, twice)
	assert.Zero(t, report.DroppedTotal())
}
