package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/sebastiankruger/steelmill-kpi/internal/card"
	"github.com/sebastiankruger/steelmill-kpi/internal/kpi"
)

// SQLiteStore persists card metadata in a local SQLite database. Deletes are
// soft: rows are marked inactive and filtered out on load.
type SQLiteStore struct {
	DBPath string
	db     *sql.DB

	mu          sync.Mutex
	subscribers map[int]func(cards []card.Card)
	nextSubID   int
}

// OpenSQLite opens or creates the card database at the given path
func OpenSQLite(path string) (*SQLiteStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve card db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure card db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open card db: %w", err)
	}

	s := &SQLiteStore{
		DBPath:      absPath,
		db:          db,
		subscribers: make(map[int]func(cards []card.Card)),
	}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS cards (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	type TEXT NOT NULL,
	position INTEGER NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_active_position ON cards(is_active, position);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure card schema: %w", err)
	}
	return nil
}

// SaveCards upserts the metadata of all given cards, merged by ID
func (s *SQLiteStore) SaveCards(ctx context.Context, cards []card.Card) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range cards {
		_, err := tx.ExecContext(ctx, `
INSERT INTO cards (id, title, type, position, is_active, updated_at)
VALUES (?, ?, ?, ?, 1, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	type = excluded.type,
	position = excluded.position,
	is_active = 1,
	updated_at = excluded.updated_at`,
			c.ID, c.Title, string(c.Type), c.Position, now)
		if err != nil {
			return fmt.Errorf("upsert card %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	s.notify(ctx)
	return nil
}

// LoadCards returns active cards ordered by position ascending
func (s *SQLiteStore) LoadCards(ctx context.Context) ([]card.Card, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, type, position FROM cards
WHERE is_active = 1
ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []card.Card
	for rows.Next() {
		var c card.Card
		var typ string
		if err := rows.Scan(&c.ID, &c.Title, &typ, &c.Position); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.Type = kpi.MetricType(typ)
		c.Data = kpi.FallbackPoint()
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// CreateCard stores a single new card and returns its ID
func (s *SQLiteStore) CreateCard(ctx context.Context, c card.Card) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO cards (id, title, type, position, is_active, updated_at)
VALUES (?, ?, ?, ?, 1, ?)`,
		c.ID, c.Title, string(c.Type), c.Position, now)
	if err != nil {
		return "", fmt.Errorf("insert card %s: %w", c.ID, err)
	}
	s.notify(ctx)
	return c.ID, nil
}

// UpdateCardTitle changes the title of an existing card
func (s *SQLiteStore) UpdateCardTitle(ctx context.Context, id, title string) error {
	if err := s.updateField(ctx, id, "title", title); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

// UpdateCardPosition changes the position of an existing card
func (s *SQLiteStore) UpdateCardPosition(ctx context.Context, id string, position int) error {
	if err := s.updateField(ctx, id, "position", position); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

func (s *SQLiteStore) updateField(ctx context.Context, id, field string, value interface{}) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE cards SET %s = ?, updated_at = ? WHERE id = ? AND is_active = 1`, field),
		value, now, id)
	if err != nil {
		return fmt.Errorf("update card %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("update card %s: not found", id)
	}
	return nil
}

// DeleteCard soft-deletes a card by marking it inactive
func (s *SQLiteStore) DeleteCard(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE cards SET is_active = 0, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("delete card %s: not found", id)
	}
	s.notify(ctx)
	return nil
}

// SubscribeToCards registers a callback for metadata changes
func (s *SQLiteStore) SubscribeToCards(cb func(cards []card.Card)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = cb

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// notify pushes the current active collection to all subscribers.
// Subscriber failures are logged, never propagated.
func (s *SQLiteStore) notify(ctx context.Context) {
	s.mu.Lock()
	subs := make([]func(cards []card.Card), 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		subs = append(subs, cb)
	}
	s.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	cards, err := s.LoadCards(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load cards for subscriber notification")
		return
	}
	for _, cb := range subs {
		cb(cards)
	}
}
