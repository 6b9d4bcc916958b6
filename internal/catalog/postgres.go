package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/adhikaar/internal/model"
)

const (
	schemesQuery = `SELECT id::text, name, COALESCE(short_description, ''), COALESCE(long_description, ''),
	                       COALESCE(benefits, ''), COALESCE(categories, '{}'), COALESCE(state_type, ''),
	                       COALESCE(implementing_department, ''), COALESCE(application_mode, ''),
	                       COALESCE(helpline_number, ''), COALESCE(priority_rank, 0),
	                       COALESCE(applicable_states, '{}'), is_active, COALESCE(official_link, ''), created_at
	                FROM schemes
	                WHERE is_active = true
	                ORDER BY priority_rank DESC NULLS LAST, created_at DESC`

	rulesQuery = `SELECT r.id::text, r.scheme_id::text, r.min_age, r.max_age,
	                     COALESCE(r.allowed_genders, '{}'), COALESCE(r.allowed_categories, '{}'),
	                     r.income_min::float8, r.income_max::float8, r.income_type,
	                     COALESCE(r.allowed_occupations, '{}'), COALESCE(r.employment_status, '{}'),
	                     COALESCE(r.requires_land_ownership, false), COALESCE(r.requires_farmer, false),
	                     r.min_land_size::float8, r.max_land_size::float8,
	                     COALESCE(r.requires_disability, false), COALESCE(r.widow_only, false),
	                     COALESCE(r.student_only, false), COALESCE(r.minority_only, false),
	                     COALESCE(r.bpl_only, false),
	                     COALESCE(r.applicable_states, '{}'), COALESCE(r.excluded_states, '{}')
	              FROM scheme_eligibility_rules r
	              JOIN schemes s ON s.id = r.scheme_id
	              WHERE s.is_active = true
	              ORDER BY r.scheme_id, r.id`
)

// PostgresProvider reads the catalog from the schemes and
// scheme_eligibility_rules tables
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider connects to databaseURL and verifies the connection
func NewPostgresProvider(ctx context.Context, databaseURL string) (*PostgresProvider, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresProvider{pool: pool}, nil
}

// Close closes the connection pool
func (p *PostgresProvider) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Name returns the provider name
func (p *PostgresProvider) Name() string {
	return "postgres"
}

// Load reads all active schemes and their rules inside one read-only
// transaction so both queries see the same catalog
func (p *PostgresProvider) Load(ctx context.Context) ([]model.SchemeWithRules, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin catalog read: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	schemes, err := loadSchemes(ctx, tx)
	if err != nil {
		return nil, err
	}
	rules, err := loadRules(ctx, tx)
	if err != nil {
		return nil, err
	}

	for i := range schemes {
		schemes[i].Rules = rules[schemes[i].ID]
	}
	return Rank(schemes), nil
}

func loadSchemes(ctx context.Context, q pgx.Tx) ([]model.SchemeWithRules, error) {
	rows, err := q.Query(ctx, schemesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemes: %w", err)
	}
	defer rows.Close()

	var schemes []model.SchemeWithRules
	for rows.Next() {
		var s model.SchemeWithRules
		var stateType, mode string
		if err := rows.Scan(&s.ID, &s.Name, &s.ShortDescription, &s.LongDescription,
			&s.Benefits, &s.Categories, &stateType,
			&s.ImplementingDepartment, &mode,
			&s.HelplineNumber, &s.PriorityRank,
			&s.ApplicableStates, &s.IsActive, &s.OfficialLink, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheme: %w", err)
		}
		s.StateType = model.StateType(stateType)
		s.ApplicationMode = model.ApplicationMode(mode)
		schemes = append(schemes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list schemes: %w", err)
	}
	return schemes, nil
}

func loadRules(ctx context.Context, q pgx.Tx) (map[string][]model.EligibilityRule, error) {
	rows, err := q.Query(ctx, rulesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligibility rules: %w", err)
	}
	defer rows.Close()

	rules := make(map[string][]model.EligibilityRule)
	for rows.Next() {
		var r model.EligibilityRule
		var incomeType *string
		if err := rows.Scan(&r.ID, &r.SchemeID, &r.MinAge, &r.MaxAge,
			&r.AllowedGenders, &r.AllowedCategories,
			&r.IncomeMin, &r.IncomeMax, &incomeType,
			&r.AllowedOccupations, &r.EmploymentStatus,
			&r.RequiresLandOwnership, &r.RequiresFarmer,
			&r.MinLandSize, &r.MaxLandSize,
			&r.RequiresDisability, &r.WidowOnly,
			&r.StudentOnly, &r.MinorityOnly,
			&r.BPLOnly,
			&r.ApplicableStates, &r.ExcludedStates); err != nil {
			return nil, fmt.Errorf("failed to scan eligibility rule: %w", err)
		}
		if incomeType != nil {
			if t, ok := model.ParseIncomeType(*incomeType); ok {
				r.IncomeType = &t
			}
		}
		rules[r.SchemeID] = append(rules[r.SchemeID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list eligibility rules: %w", err)
	}
	return rules, nil
}
