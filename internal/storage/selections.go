package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stitts-dev/wager-engine/internal/engine"
)

// SelectionRecord is a persisted parlay pick from a completed run. Only the
// final selections are stored; correlation entries and intermediate
// candidates are recomputed per run because odds go stale in minutes.
type SelectionRecord struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	RunID               string         `gorm:"index;size:36" json:"run_id"`
	Profile             string         `gorm:"size:16" json:"profile"`
	Legs                datatypes.JSON `json:"legs"`
	CombinedAmerican    int            `json:"combined_american"`
	AdjustedProbability float64        `json:"adjusted_probability"`
	ExpectedValue       float64        `json:"expected_value"`
	SuggestedStake      float64        `json:"suggested_stake"`
	RiskOverall         float64        `json:"risk_overall"`
	CreatedAt           time.Time      `json:"created_at"`
}

func (SelectionRecord) TableName() string {
	return "parlay_selections"
}

// SelectionStore persists run output.
type SelectionStore struct {
	db *gorm.DB
}

func NewSelectionStore(db *gorm.DB) *SelectionStore {
	return &SelectionStore{db: db}
}

// Migrate creates the selections table.
func (s *SelectionStore) Migrate() error {
	return s.db.AutoMigrate(&SelectionRecord{})
}

// SaveSelections writes every ranked candidate from a run in one batch.
func (s *SelectionStore) SaveSelections(ctx context.Context, result *engine.Result) error {
	if len(result.Candidates) == 0 {
		return nil
	}

	records := make([]SelectionRecord, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		legs, err := json.Marshal(c.Legs)
		if err != nil {
			return fmt.Errorf("failed to encode legs for run %s: %w", result.RunID, err)
		}

		records = append(records, SelectionRecord{
			RunID:               result.RunID,
			Profile:             result.Profile,
			Legs:                legs,
			CombinedAmerican:    c.CombinedAmericanOdds,
			AdjustedProbability: c.AdjustedProbability,
			ExpectedValue:       c.ExpectedValue,
			SuggestedStake:      c.SuggestedStake,
			RiskOverall:         c.Risk.Overall,
		})
	}

	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("failed to save selections for run %s: %w", result.RunID, err)
	}

	return nil
}

// SelectionsByRun returns the persisted picks for one run.
func (s *SelectionStore) SelectionsByRun(ctx context.Context, runID string) ([]SelectionRecord, error) {
	var records []SelectionRecord
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("expected_value DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load selections for run %s: %w", runID, err)
	}
	return records, nil
}

// RecentSelections returns the latest persisted picks across runs.
func (s *SelectionStore) RecentSelections(ctx context.Context, limit int) ([]SelectionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []SelectionRecord
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent selections: %w", err)
	}
	return records, nil
}
