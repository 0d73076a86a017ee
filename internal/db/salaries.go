package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/openpay/internal/types"
)

// DefaultCountry is assigned to submissions that do not name a country.
const DefaultCountry = "Cameroun"

const salaryColumns = `id, company, title, location, compensation, date, level,
	company_xp, total_xp, remote, source, country`

// SalaryPatch holds the fields of an update; nil fields are left unchanged.
type SalaryPatch struct {
	Company      *string             `json:"company,omitempty"`
	Title        *string             `json:"title,omitempty"`
	Location     *string             `json:"location,omitempty"`
	Compensation *float64            `json:"compensation,omitempty"`
	Level        *types.Level        `json:"level,omitempty"`
	CompanyXP    *int                `json:"company_xp,omitempty"`
	TotalXP      *int                `json:"total_xp,omitempty"`
	Remote       *types.RemoteConfig `json:"remote,omitempty"`
	Country      *string             `json:"country,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SalaryPatch) Empty() bool {
	return p == SalaryPatch{}
}

// Apply returns rec with the fields of the patch set.
func (p SalaryPatch) Apply(rec types.SalaryRecord) types.SalaryRecord {
	if p.Company != nil {
		rec.Company = *p.Company
	}
	if p.Title != nil {
		rec.Title = p.Title
	}
	if p.Location != nil {
		rec.Location = *p.Location
	}
	if p.Compensation != nil {
		rec.Compensation = *p.Compensation
	}
	if p.Level != nil {
		rec.Level = p.Level
	}
	if p.CompanyXP != nil {
		rec.CompanyXP = p.CompanyXP
	}
	if p.TotalXP != nil {
		rec.TotalXP = p.TotalXP
	}
	if p.Remote != nil {
		rec.Remote = p.Remote
	}
	if p.Country != nil {
		rec.Country = *p.Country
	}
	return rec
}

// -----------------------------------------------------------------------------
// Salary Methods
// -----------------------------------------------------------------------------

// InsertSalary stores a community submission and returns it with its generated id.
func (db *DB) InsertSalary(ctx context.Context, rec types.SalaryRecord) (*types.SalaryRecord, error) {
	rec.ID = uuid.New().String()
	rec.Source = types.SourceCommunity
	if strings.TrimSpace(rec.Country) == "" {
		rec.Country = DefaultCountry
	}

	date := time.Now().UTC()
	if rec.Date != "" {
		parsed, err := time.Parse(time.RFC3339, rec.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", rec.Date, err)
		}
		date = parsed
	}
	rec.Date = date.Format(time.RFC3339)

	remote, err := marshalRemote(rec.Remote)
	if err != nil {
		return nil, err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO salaries (id, company, title, location, compensation, date, level,
		                       company_xp, total_xp, remote, source, country)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.Company, rec.Title, rec.Location, rec.Compensation, date, levelArg(rec.Level),
		rec.CompanyXP, rec.TotalXP, remote, string(rec.Source), rec.Country,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert salary: %w", err)
	}
	return &rec, nil
}

// GetSalary retrieves a record by id; ErrNotFound when absent.
func (db *DB) GetSalary(ctx context.Context, id string) (*types.SalaryRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	row := db.pool.QueryRow(ctx,
		`SELECT `+salaryColumns+` FROM salaries WHERE id = $1`, uid)
	rec, err := scanSalary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get salary: %w", err)
	}
	return rec, nil
}

// ListSalaries returns every community record, newest first.
func (db *DB) ListSalaries(ctx context.Context) ([]types.SalaryRecord, error) {
	return db.listSalaries(ctx, "")
}

// ListSalariesByCountry returns the community records of country, newest first.
func (db *DB) ListSalariesByCountry(ctx context.Context, country string) ([]types.SalaryRecord, error) {
	return db.listSalaries(ctx, country)
}

func (db *DB) listSalaries(ctx context.Context, country string) ([]types.SalaryRecord, error) {
	query := `SELECT ` + salaryColumns + ` FROM salaries`
	var args []interface{}
	if country != "" {
		query += ` WHERE country = $1`
		args = append(args, country)
	}
	query += ` ORDER BY date DESC`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list salaries: %w", err)
	}
	defer rows.Close()

	records := []types.SalaryRecord{}
	for rows.Next() {
		rec, err := scanSalary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan salary: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate salaries: %w", err)
	}
	return records, nil
}

// UpdateSalary applies patch to the record with id and returns the updated record.
func (db *DB) UpdateSalary(ctx context.Context, id string, patch SalaryPatch) (*types.SalaryRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if patch.Empty() {
		return db.GetSalary(ctx, id)
	}

	sets, args, err := buildSalaryUpdate(patch)
	if err != nil {
		return nil, err
	}
	args = append(args, uid)

	query := fmt.Sprintf(
		`UPDATE salaries SET %s, updated_at = NOW() WHERE id = $%d RETURNING `+salaryColumns,
		strings.Join(sets, ", "), len(args),
	)
	rec, err := scanSalary(db.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update salary: %w", err)
	}
	return rec, nil
}

// buildSalaryUpdate returns the SET clauses of patch and their positional arguments.
func buildSalaryUpdate(patch SalaryPatch) ([]string, []interface{}, error) {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Company != nil {
		add("company", *patch.Company)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Compensation != nil {
		add("compensation", *patch.Compensation)
	}
	if patch.Level != nil {
		add("level", string(*patch.Level))
	}
	if patch.CompanyXP != nil {
		add("company_xp", *patch.CompanyXP)
	}
	if patch.TotalXP != nil {
		add("total_xp", *patch.TotalXP)
	}
	if patch.Remote != nil {
		remote, err := marshalRemote(patch.Remote)
		if err != nil {
			return nil, nil, err
		}
		add("remote", remote)
	}
	if patch.Country != nil {
		add("country", *patch.Country)
	}
	return sets, args, nil
}

// DeleteSalary removes the record with id; ErrNotFound when absent.
func (db *DB) DeleteSalary(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := db.pool.Exec(ctx, `DELETE FROM salaries WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete salary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func marshalRemote(r *types.RemoteConfig) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal remote: %w", err)
	}
	return b, nil
}

func levelArg(l *types.Level) *string {
	if l == nil {
		return nil
	}
	s := string(*l)
	return &s
}

func scanSalary(row pgx.Row) (*types.SalaryRecord, error) {
	var (
		rec       types.SalaryRecord
		id        uuid.UUID
		date      time.Time
		level     *string
		remoteRaw []byte
		source    string
	)
	err := row.Scan(&id, &rec.Company, &rec.Title, &rec.Location, &rec.Compensation, &date,
		&level, &rec.CompanyXP, &rec.TotalXP, &remoteRaw, &source, &rec.Country)
	if err != nil {
		return nil, err
	}

	rec.ID = id.String()
	rec.Date = date.UTC().Format(time.RFC3339)
	rec.Source = types.Source(source)
	if level != nil {
		l := types.Level(*level)
		rec.Level = &l
	}
	if len(remoteRaw) > 0 {
		var remote types.RemoteConfig
		if err := json.Unmarshal(remoteRaw, &remote); err != nil {
			return nil, fmt.Errorf("failed to unmarshal remote: %w", err)
		}
		rec.Remote = &remote
	}
	return &rec, nil
}
