package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sebastiankruger/steelmill-kpi/internal/card"
)

// Key prefix shared by all locally persisted entries
const localKeyPrefix = "steelmill_dashboard_"

// Local store keys
const (
	KeyCards          = localKeyPrefix + "cards"
	KeyLastSync       = localKeyPrefix + "last_sync"
	KeyPendingChanges = localKeyPrefix + "pending_changes"
)

// Change action tags. Only ActionSave is replayed on reconnect; the other
// tags are part of the queue shape but have no replay path yet.
const (
	ActionSave   = "save"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Change is one queued offline mutation
type Change struct {
	Action    string      `json:"action"`
	Cards     []card.Card `json:"cards,omitempty"`
	CardID    string      `json:"cardId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// LocalStore is a file-backed key/value string store used as the offline
// fallback: card snapshot, last-sync timestamp and the pending change queue.
type LocalStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// OpenLocal opens or creates the local store file at the given path
func OpenLocal(path string) (*LocalStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve local store path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure local store dir: %w", err)
	}

	ls := &LocalStore{
		path:   absPath,
		values: make(map[string]string),
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read local store: %w", err)
		}
		return ls, nil
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ls.values); err != nil {
			return nil, fmt.Errorf("parse local store: %w", err)
		}
	}
	return ls, nil
}

// Get returns the value for a key, or "" when absent
func (ls *LocalStore) Get(key string) string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.values[key]
}

// Set stores a value and flushes to disk
func (ls *LocalStore) Set(key, value string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.values[key] = value
	return ls.flushLocked()
}

// Delete removes a key and flushes to disk
func (ls *LocalStore) Delete(key string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.values, key)
	return ls.flushLocked()
}

func (ls *LocalStore) flushLocked() error {
	raw, err := json.MarshalIndent(ls.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal local store: %w", err)
	}
	tmp := ls.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp, ls.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}

// SaveSnapshot stores the card collection and stamps the last sync time
func (ls *LocalStore) SaveSnapshot(cards []card.Card) error {
	raw, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("marshal card snapshot: %w", err)
	}
	if err := ls.Set(KeyCards, string(raw)); err != nil {
		return err
	}
	return ls.Set(KeyLastSync, time.Now().UTC().Format(time.RFC3339))
}

// LoadSnapshot returns the stored card collection, or nil when absent
func (ls *LocalStore) LoadSnapshot() ([]card.Card, error) {
	raw := ls.Get(KeyCards)
	if raw == "" {
		return nil, nil
	}
	var cards []card.Card
	if err := json.Unmarshal([]byte(raw), &cards); err != nil {
		return nil, fmt.Errorf("parse card snapshot: %w", err)
	}
	return cards, nil
}

// LastSync returns the time of the last successful snapshot, zero when unset
func (ls *LocalStore) LastSync() time.Time {
	raw := ls.Get(KeyLastSync)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// EnqueueChange appends a change to the pending offline queue
func (ls *LocalStore) EnqueueChange(ch Change) error {
	pending, err := ls.PendingChanges()
	if err != nil {
		return err
	}
	pending = append(pending, ch)
	raw, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending changes: %w", err)
	}
	return ls.Set(KeyPendingChanges, string(raw))
}

// PendingChanges returns the queued offline changes in enqueue order
func (ls *LocalStore) PendingChanges() ([]Change, error) {
	raw := ls.Get(KeyPendingChanges)
	if raw == "" {
		return nil, nil
	}
	var pending []Change
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("parse pending changes: %w", err)
	}
	return pending, nil
}

// ClearPendingChanges empties the offline queue
func (ls *LocalStore) ClearPendingChanges() error {
	return ls.Delete(KeyPendingChanges)
}
