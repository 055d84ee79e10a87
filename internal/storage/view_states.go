package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"studio/internal/domain"
)

// ViewStateStore implements domain.ViewStateStore on SQL.
type ViewStateStore struct {
	db *DB
}

func NewViewStateStore(db *DB) *ViewStateStore {
	return &ViewStateStore{db: db}
}

// SaveViewStates replaces every stored state of a design.
func (s *ViewStateStore) SaveViewStates(designID string, states []domain.ViewState) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.db.exec(tx, `DELETE FROM view_states WHERE design_id = ?`, designID); err != nil {
		return fmt.Errorf("clear view states: %w", err)
	}
	for _, vs := range states {
		ratio := ""
		if vs.RatioState != nil {
			b, err := json.Marshal(vs.RatioState)
			if err != nil {
				return fmt.Errorf("marshal ratio state: %w", err)
			}
			ratio = string(b)
		}
		updated := vs.UpdatedAt
		if updated.IsZero() {
			updated = time.Now()
		}
		_, err := s.db.exec(tx,
			`INSERT INTO view_states (design_id, color_key, view_name, canvas_json, ratio_json, preview_width, preview_height, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			designID, domain.ColorKey(vs.ColorKey), string(vs.View), vs.CanvasJSON, ratio,
			vs.PreviewSize.Width, vs.PreviewSize.Height, updated.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert view state %s::%s: %w", vs.ColorKey, vs.View, err)
		}
	}
	return tx.Commit()
}

func (s *ViewStateStore) LoadViewStates(designID string) ([]domain.ViewState, error) {
	rows, err := s.db.query(
		`SELECT color_key, view_name, canvas_json, ratio_json, preview_width, preview_height, updated_at
		 FROM view_states WHERE design_id = ? ORDER BY color_key, view_name`, designID,
	)
	if err != nil {
		return nil, fmt.Errorf("load view states: %w", err)
	}
	defer rows.Close()

	var states []domain.ViewState
	for rows.Next() {
		var (
			vs      domain.ViewState
			view    string
			ratio   string
			updated int64
		)
		if err := rows.Scan(&vs.ColorKey, &view, &vs.CanvasJSON, &ratio, &vs.PreviewSize.Width, &vs.PreviewSize.Height, &updated); err != nil {
			return nil, fmt.Errorf("scan view state: %w", err)
		}
		vs.View = domain.View(view)
		vs.UpdatedAt = time.UnixMilli(updated)
		if ratio != "" {
			var rs domain.RatioState
			if err := json.Unmarshal([]byte(ratio), &rs); err != nil {
				return nil, fmt.Errorf("decode ratio state: %w", err)
			}
			vs.RatioState = &rs
		}
		states = append(states, vs)
	}
	return states, rows.Err()
}

func (s *ViewStateStore) DeleteViewStates(designID string) error {
	_, err := s.db.exec(nil, `DELETE FROM view_states WHERE design_id = ?`, designID)
	return err
}
