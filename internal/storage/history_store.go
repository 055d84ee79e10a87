package storage

import (
	"fmt"

	"studio/internal/domain"
)

const defaultHistoryLimit = 40

// HistoryStore implements domain.HistoryStore on SQL. Each context keeps
// at most limit entries; older ones are pruned on save.
type HistoryStore struct {
	db    *DB
	limit int
}

func NewHistoryStore(db *DB, limit int) *HistoryStore {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &HistoryStore{db: db, limit: limit}
}

// SaveHistory replaces the stored stacks for the given contexts. Contexts
// not present in states are left alone.
func (s *HistoryStore) SaveHistory(designID string, states map[string]domain.HistoryState) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cursorSQL := s.db.upsertSQL("history_cursors", []string{"design_id", "context_key"}, []string{"cursor_index"})
	for key, st := range states {
		stack, idx := prune(st.Stack, st.Index, s.limit)
		if _, err := s.db.exec(tx, `DELETE FROM history_entries WHERE design_id = ? AND context_key = ?`, designID, key); err != nil {
			return fmt.Errorf("clear history %s: %w", key, err)
		}
		if len(stack) == 0 {
			if _, err := s.db.exec(tx, `DELETE FROM history_cursors WHERE design_id = ? AND context_key = ?`, designID, key); err != nil {
				return fmt.Errorf("clear cursor %s: %w", key, err)
			}
			continue
		}
		for i, snap := range stack {
			_, err := s.db.exec(tx,
				`INSERT INTO history_entries (design_id, context_key, seq, snapshot_json) VALUES (?, ?, ?, ?)`,
				designID, key, i, snap,
			)
			if err != nil {
				return fmt.Errorf("insert history entry: %w", err)
			}
		}
		if _, err := s.db.exec(tx, cursorSQL, designID, key, idx); err != nil {
			return fmt.Errorf("save cursor %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// LoadHistory returns every stored stack of a design keyed by context.
func (s *HistoryStore) LoadHistory(designID string) (map[string]domain.HistoryState, error) {
	rows, err := s.db.query(
		`SELECT context_key, snapshot_json FROM history_entries
		 WHERE design_id = ? ORDER BY context_key, seq`, designID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make(map[string]domain.HistoryState)
	for rows.Next() {
		var key, snap string
		if err := rows.Scan(&key, &snap); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		st := out[key]
		st.Stack = append(st.Stack, snap)
		out[key] = st
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Read cursors after closing the entries cursor
	crows, err := s.db.query(`SELECT context_key, cursor_index FROM history_cursors WHERE design_id = ?`, designID)
	if err != nil {
		return nil, fmt.Errorf("load cursors: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var (
			key string
			idx int
		)
		if err := crows.Scan(&key, &idx); err != nil {
			return nil, fmt.Errorf("scan cursor: %w", err)
		}
		st, ok := out[key]
		if !ok {
			continue
		}
		st.Index = clampIndex(idx, len(st.Stack))
		out[key] = st
	}
	return out, crows.Err()
}

func (s *HistoryStore) DeleteHistory(designID string) error {
	if _, err := s.db.exec(nil, `DELETE FROM history_cursors WHERE design_id = ?`, designID); err != nil {
		return err
	}
	_, err := s.db.exec(nil, `DELETE FROM history_entries WHERE design_id = ?`, designID)
	return err
}

// prune drops the oldest entries beyond limit, shifting the cursor.
func prune(stack []string, idx, limit int) ([]string, int) {
	if over := len(stack) - limit; over > 0 {
		stack = stack[over:]
		idx -= over
	}
	return stack, clampIndex(idx, len(stack))
}

func clampIndex(idx, n int) int {
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
