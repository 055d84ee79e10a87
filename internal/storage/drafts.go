package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studio/internal/domain"
)

// DraftStore implements domain.DraftStore on SQL.
type DraftStore struct {
	db *DB
}

func NewDraftStore(db *DB) *DraftStore {
	return &DraftStore{db: db}
}

func (s *DraftStore) SaveDraft(d *domain.Draft) error {
	d.UpdatedAt = time.Now()
	designJSON, err := json.Marshal(d.Design)
	if err != nil {
		return fmt.Errorf("marshal design: %w", err)
	}
	q := s.db.upsertSQL("drafts", []string{"id"}, []string{"remote_id", "name", "product_id", "design_json", "updated_at"})
	_, err = s.db.exec(nil, q, d.ID, d.RemoteID, d.Name, d.ProductID, string(designJSON), d.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *DraftStore) GetDraft(id string) (*domain.Draft, error) {
	row := s.db.queryRow(
		`SELECT id, remote_id, name, product_id, design_json, updated_at FROM drafts WHERE id = ?`, id,
	)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDrafts returns every draft, most recently updated first.
func (s *DraftStore) ListDrafts() ([]domain.Draft, error) {
	rows, err := s.db.query(
		`SELECT id, remote_id, name, product_id, design_json, updated_at FROM drafts ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	drafts := []domain.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *d)
	}
	return drafts, rows.Err()
}

func (s *DraftStore) DeleteDraft(id string) error {
	_, err := s.db.exec(nil, `DELETE FROM drafts WHERE id = ?`, id)
	return err
}

// Fingerprint changes whenever a draft is added, removed or saved.
func (s *DraftStore) Fingerprint() (string, error) {
	var (
		count   int
		updated int64
	)
	err := s.db.queryRow(`SELECT COUNT(*), COALESCE(MAX(updated_at), 0) FROM drafts`).Scan(&count, &updated)
	if err != nil {
		return "", fmt.Errorf("drafts fingerprint: %w", err)
	}
	return fmt.Sprintf("%d:%d", count, updated), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(sc scanner) (*domain.Draft, error) {
	var (
		d          domain.Draft
		designJSON string
		updated    int64
	)
	if err := sc.Scan(&d.ID, &d.RemoteID, &d.Name, &d.ProductID, &designJSON, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(designJSON), &d.Design); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", d.ID, err)
	}
	d.UpdatedAt = time.UnixMilli(updated)
	return &d, nil
}
