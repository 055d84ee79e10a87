package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// SettingsStore is a small key/value table for app preferences.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the stored value and whether it exists.
func (s *SettingsStore) Get(key string) (string, bool, error) {
	var v string
	err := s.db.queryRow(`SELECT value FROM app_settings WHERE key_name = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SettingsStore) Set(key, value string) error {
	q := s.db.upsertSQL("app_settings", []string{"key_name"}, []string{"value"})
	if _, err := s.db.exec(nil, q, key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// GetInt returns the integer stored under key, or def if it is missing or
// not a number.
func (s *SettingsStore) GetInt(key string, def int) int {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *SettingsStore) SetInt(key string, value int) error {
	return s.Set(key, strconv.Itoa(value))
}
