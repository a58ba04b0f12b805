// Package store persists association, model, and line-item records in a
// local SQLite database. It is the keyed record store the forecast engine's
// callers read from and write accepted optimization results back into; the
// engine itself never touches it.
package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/openreserve/reserve-forecast/internal/config"
)

// Store wraps the SQLite database holding the persisted records.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Association is a community or building association owning reserve models.
type Association struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Management string `json:"management,omitempty"`
	Units      int    `json:"units"`
}

// Model is a persisted reserve model: parameters plus the currently accepted
// monthly fee.
type Model struct {
	ID            string                 `json:"id"`
	AssociationID string                 `json:"associationId"`
	Name          string                 `json:"name"`
	Params        config.ModelParameters `json:"params"`
}

// migrations returns the schema statements. Each string is a single SQL
// statement; SQLite executes one at a time.
func migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS associations (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			management TEXT NOT NULL DEFAULT '',
			units      INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		`CREATE TABLE IF NOT EXISTS models (
			id                   TEXT PRIMARY KEY,
			association_id       TEXT NOT NULL REFERENCES associations(id),
			name                 TEXT NOT NULL,
			horizon_years        INTEGER NOT NULL,
			start_year           INTEGER NOT NULL,
			starting_balance     REAL NOT NULL DEFAULT 0,
			base_annual_cost     REAL NOT NULL DEFAULT 0,
			inflation_pct        REAL NOT NULL DEFAULT 0,
			safety_net_pct       REAL NOT NULL DEFAULT 0,
			loan_threshold_pct   REAL NOT NULL DEFAULT 0,
			loan_rate_pct        REAL NOT NULL DEFAULT 0,
			loan_term_years      INTEGER NOT NULL DEFAULT 0,
			monthly_fee          REAL NOT NULL DEFAULT 0,
			minimum_fee          REAL NOT NULL DEFAULT 0,
			max_fee_increase_pct REAL NOT NULL DEFAULT 0,
			target_min_balance   REAL NOT NULL DEFAULT 0,
			updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_models_association ON models(association_id)`,

		`CREATE TABLE IF NOT EXISTS line_items (
			id             TEXT PRIMARY KEY,
			model_id       TEXT NOT NULL REFERENCES models(id),
			name           TEXT NOT NULL,
			cost           REAL NOT NULL DEFAULT 0,
			trigger_year   INTEGER NOT NULL DEFAULT 0,
			remaining_life INTEGER NOT NULL DEFAULT 0,
			expected_life  INTEGER NOT NULL DEFAULT 0,
			redundancy     INTEGER NOT NULL DEFAULT 1,
			class          TEXT NOT NULL DEFAULT 'Small'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_line_items_model ON line_items(model_id)`,
	}
}

// Open opens (creating if needed) the record store at the given path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open record store %s: %w", path, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	for _, stmt := range migrations() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate record store: %w", err)
		}
	}
	return nil
}

// CreateAssociation inserts a new association record and returns it with its
// generated ID.
func (s *Store) CreateAssociation(a Association) (Association, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO associations (id, name, management, units) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, a.Management, a.Units,
	)
	if err != nil {
		return Association{}, fmt.Errorf("create association: %w", err)
	}
	return a, nil
}

// ListAssociations returns all association records.
func (s *Store) ListAssociations() ([]Association, error) {
	rows, err := s.db.Query(`SELECT id, name, management, units FROM associations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	defer rows.Close()

	var out []Association
	for rows.Next() {
		var a Association
		if err := rows.Scan(&a.ID, &a.Name, &a.Management, &a.Units); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateModel inserts a new model record.
func (s *Store) CreateModel(m Model) (Model, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	p := m.Params
	_, err := s.db.Exec(
		`INSERT INTO models (
			id, association_id, name, horizon_years, start_year, starting_balance,
			base_annual_cost, inflation_pct, safety_net_pct, loan_threshold_pct,
			loan_rate_pct, loan_term_years, monthly_fee, minimum_fee,
			max_fee_increase_pct, target_min_balance
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.AssociationID, m.Name, p.HorizonYears, p.StartYear, p.StartingBalance,
		p.BaseAnnualCost, p.InflationPct, p.SafetyNetPct, p.LoanThresholdPct,
		p.LoanRatePct, p.LoanTermYears, p.MonthlyFee, p.MinimumFee,
		p.MaxFeeIncreasePct, p.TargetMinBalance,
	)
	if err != nil {
		return Model{}, fmt.Errorf("create model: %w", err)
	}
	return m, nil
}

// GetModel loads one model record. The association's unit count is folded
// into the returned parameters, since the engine consumes them together.
func (s *Store) GetModel(id string) (Model, error) {
	row := s.db.QueryRow(
		`SELECT m.id, m.association_id, m.name, m.horizon_years, m.start_year,
			m.starting_balance, m.base_annual_cost, m.inflation_pct, m.safety_net_pct,
			m.loan_threshold_pct, m.loan_rate_pct, m.loan_term_years, m.monthly_fee,
			m.minimum_fee, m.max_fee_increase_pct, m.target_min_balance, a.units
		FROM models m JOIN associations a ON a.id = m.association_id
		WHERE m.id = ?`, id)

	var m Model
	p := &m.Params
	err := row.Scan(
		&m.ID, &m.AssociationID, &m.Name, &p.HorizonYears, &p.StartYear,
		&p.StartingBalance, &p.BaseAnnualCost, &p.InflationPct, &p.SafetyNetPct,
		&p.LoanThresholdPct, &p.LoanRatePct, &p.LoanTermYears, &p.MonthlyFee,
		&p.MinimumFee, &p.MaxFeeIncreasePct, &p.TargetMinBalance, &p.Units,
	)
	if err != nil {
		return Model{}, fmt.Errorf("get model %s: %w", id, err)
	}
	p.Name = m.Name
	return m, nil
}

// ListModels returns the models belonging to an association.
func (s *Store) ListModels(associationID string) ([]Model, error) {
	rows, err := s.db.Query(`SELECT id FROM models WHERE association_id = ? ORDER BY name`, associationID)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan model id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []Model
	for _, id := range ids {
		m, err := s.GetModel(id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// CreateLineItem inserts a line item under a model.
func (s *Store) CreateLineItem(modelID string, item config.LineItem) (config.LineItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Redundancy == 0 {
		item.Redundancy = 1
	}
	if item.Class == "" {
		item.Class = "Small"
	}
	_, err := s.db.Exec(
		`INSERT INTO line_items (id, model_id, name, cost, trigger_year, remaining_life, expected_life, redundancy, class)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, modelID, item.Name, item.Cost, item.TriggerYear, item.RemainingLife,
		item.ExpectedLife, item.Redundancy, item.Class,
	)
	if err != nil {
		return config.LineItem{}, fmt.Errorf("create line item: %w", err)
	}
	return item, nil
}

// ListLineItems returns the line items of a model.
func (s *Store) ListLineItems(modelID string) ([]config.LineItem, error) {
	rows, err := s.db.Query(
		`SELECT id, name, cost, trigger_year, remaining_life, expected_life, redundancy, class
		 FROM line_items WHERE model_id = ? ORDER BY name`, modelID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	var out []config.LineItem
	for rows.Next() {
		var item config.LineItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Cost, &item.TriggerYear,
			&item.RemainingLife, &item.ExpectedLife, &item.Redundancy, &item.Class); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// DeleteLineItem removes a line item.
func (s *Store) DeleteLineItem(id string) error {
	if _, err := s.db.Exec(`DELETE FROM line_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete line item %s: %w", id, err)
	}
	return nil
}

// WriteBackOptimizedFee persists an accepted optimization result into the
// model's fee field.
func (s *Store) WriteBackOptimizedFee(modelID string, monthlyFee float64) error {
	res, err := s.db.Exec(
		`UPDATE models SET monthly_fee = ?, updated_at = datetime('now') WHERE id = ?`,
		monthlyFee, modelID,
	)
	if err != nil {
		return fmt.Errorf("write back fee for model %s: %w", modelID, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("write back fee: model %s not found", modelID)
	}
	s.logger.Debug("accepted optimized fee written back",
		zap.String("op", "store.WriteBackOptimizedFee"),
		zap.String("model", modelID),
		zap.Float64("monthlyFee", monthlyFee),
	)
	return nil
}
