package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/progress"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    prompt TEXT NOT NULL,
    answer TEXT NOT NULL,
    chunk INTEGER NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    group_id TEXT NOT NULL DEFAULT '',
    part INTEGER NOT NULL DEFAULT 0,
    distractors TEXT NOT NULL DEFAULT '[]',
    times_answered INTEGER NOT NULL DEFAULT 0,
    times_correct INTEGER NOT NULL DEFAULT 0,
    weight REAL NOT NULL DEFAULT 25.0,
    is_mastered INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id TEXT NOT NULL,
    is_correct INTEGER NOT NULL,
    attempted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_attempts_item ON attempts(item_id, id DESC);

CREATE TABLE IF NOT EXISTS progress (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    max_unlocked_chunk INTEGER NOT NULL,
    active_set_size INTEGER NOT NULL
);
`

// itemRow is the sqlx scan target for the items table. Distractors are
// stored as a JSON array column.
type itemRow struct {
	ID            string  `db:"id"`
	Prompt        string  `db:"prompt"`
	Answer        string  `db:"answer"`
	Chunk         int     `db:"chunk"`
	Category      string  `db:"category"`
	GroupID       string  `db:"group_id"`
	Part          int     `db:"part"`
	Distractors   string  `db:"distractors"`
	TimesAnswered int     `db:"times_answered"`
	TimesCorrect  int     `db:"times_correct"`
	Weight        float64 `db:"weight"`
	Mastered      bool    `db:"is_mastered"`
}

func (r *itemRow) toDomain() (*item.Item, error) {
	var distractors []string
	if err := json.Unmarshal([]byte(r.Distractors), &distractors); err != nil {
		return nil, fmt.Errorf("decode distractors for item %s: %w", r.ID, err)
	}
	return &item.Item{
		ID:            r.ID,
		Prompt:        r.Prompt,
		Answer:        r.Answer,
		Chunk:         r.Chunk,
		Category:      r.Category,
		GroupID:       r.GroupID,
		Part:          r.Part,
		Distractors:   distractors,
		TimesAnswered: r.TimesAnswered,
		TimesCorrect:  r.TimesCorrect,
		Weight:        r.Weight,
		Mastered:      r.Mastered,
	}, nil
}

func rowFromDomain(it *item.Item) (*itemRow, error) {
	distractors := it.Distractors
	if distractors == nil {
		distractors = []string{}
	}
	encoded, err := json.Marshal(distractors)
	if err != nil {
		return nil, fmt.Errorf("encode distractors for item %s: %w", it.ID, err)
	}
	return &itemRow{
		ID:            it.ID,
		Prompt:        it.Prompt,
		Answer:        it.Answer,
		Chunk:         it.Chunk,
		Category:      it.Category,
		GroupID:       it.GroupID,
		Part:          it.Part,
		Distractors:   string(encoded),
		TimesAnswered: it.TimesAnswered,
		TimesCorrect:  it.TimesCorrect,
		Weight:        it.Weight,
		Mastered:      it.Mastered,
	}, nil
}

// SQLiteStore implements Store on a single SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLite opens (creating if needed) the database at dbPath and
// ensures the schema and the singleton progress row exist.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time; a single connection serializes
	// transactions instead of failing lock upgrades under concurrency.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	initial := progress.InitialState()
	if _, err := db.Exec(
		"INSERT OR IGNORE INTO progress (id, max_unlocked_chunk, active_set_size) VALUES (1, ?, ?)",
		initial.MaxUnlockedChunk, initial.ActiveSetSize,
	); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ── Items ───────────────────────────────────────────────────────────────

const itemColumns = "id, prompt, answer, chunk, category, group_id, part, distractors, times_answered, times_correct, weight, is_mastered"

func (s *SQLiteStore) SaveItem(ctx context.Context, it *item.Item) error {
	row, err := rowFromDomain(it)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (:id, :prompt, :answer, :chunk, :category, :group_id, :part, :distractors, :times_answered, :times_correct, :weight, :is_mastered)
	`, row)
	return err
}

func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*item.Item, error) {
	var row itemRow
	err := s.db.GetContext(ctx, &row, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (s *SQLiteStore) selectItems(ctx context.Context, query string, args ...any) ([]*item.Item, error) {
	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	items := make([]*item.Item, 0, len(rows))
	for i := range rows {
		it, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context) ([]*item.Item, error) {
	return s.selectItems(ctx, "SELECT "+itemColumns+" FROM items ORDER BY chunk, id")
}

func (s *SQLiteStore) ListItemsWithChunkAtMost(ctx context.Context, chunk int) ([]*item.Item, error) {
	return s.selectItems(ctx, "SELECT "+itemColumns+" FROM items WHERE chunk <= ? ORDER BY chunk, id", chunk)
}

func (s *SQLiteStore) ListItemsByChunk(ctx context.Context, chunk int) ([]*item.Item, error) {
	return s.selectItems(ctx, "SELECT "+itemColumns+" FROM items WHERE chunk = ? ORDER BY id", chunk)
}

func (s *SQLiteStore) ListItemsByGroup(ctx context.Context, groupID string) ([]*item.Item, error) {
	return s.selectItems(ctx, "SELECT "+itemColumns+" FROM items WHERE group_id = ? ORDER BY part, id", groupID)
}

func (s *SQLiteStore) ListItemsByCategory(ctx context.Context, category string) ([]*item.Item, error) {
	return s.selectItems(ctx, "SELECT "+itemColumns+" FROM items WHERE category = ? ORDER BY chunk, id", category)
}

func (s *SQLiteStore) CountItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM items")
	return count, err
}

func (s *SQLiteStore) MaxChunkAvailable(ctx context.Context) (int, error) {
	var highest int
	err := s.db.GetContext(ctx, &highest, "SELECT COALESCE(MAX(chunk), 0) FROM items")
	return highest, err
}

func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Attempts & outcomes ─────────────────────────────────────────────────

func (s *SQLiteStore) RecentAttempts(ctx context.Context, itemID string, n int) ([]bool, error) {
	var recent []bool
	err := s.db.SelectContext(ctx, &recent,
		"SELECT is_correct FROM attempts WHERE item_id = ? ORDER BY id DESC LIMIT ?", itemID, n)
	if err != nil {
		return nil, err
	}
	return recent, nil
}

// txAttemptView serves an outcome decision's reads from the transaction
// that will write the result.
type txAttemptView struct {
	ctx context.Context
	tx  *sqlx.Tx
	it  *item.Item
}

func (v *txAttemptView) Item() *item.Item { return v.it }

func (v *txAttemptView) RecentAttempts(itemID string, n int) ([]bool, error) {
	var recent []bool
	err := v.tx.SelectContext(v.ctx, &recent,
		"SELECT is_correct FROM attempts WHERE item_id = ? ORDER BY id DESC LIMIT ?", itemID, n)
	if err != nil {
		return nil, err
	}
	return recent, nil
}

func (v *txAttemptView) ItemsByChunk(chunk int) ([]*item.Item, error) {
	var rows []itemRow
	if err := v.tx.SelectContext(v.ctx, &rows,
		"SELECT "+itemColumns+" FROM items WHERE chunk = ? ORDER BY id", chunk); err != nil {
		return nil, err
	}
	items := make([]*item.Item, 0, len(rows))
	for i := range rows {
		it, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// ApplyOutcome records one attempt atomically: the pre-attempt state is
// read, the outcome decided, and every stat change written inside a
// single transaction, so a concurrent attempt never decides from a
// window that is missing this one.
func (s *SQLiteStore) ApplyOutcome(ctx context.Context, itemID string, decide OutcomeFunc) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var row itemRow
	err = tx.GetContext(ctx, &row, "SELECT "+itemColumns+" FROM items WHERE id = ?", itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	it, err := row.toDomain()
	if err != nil {
		return err
	}

	o, err := decide(&txAttemptView{ctx: ctx, tx: tx, it: it})
	if err != nil {
		return err
	}

	correct := 0
	if o.Correct {
		correct = 1
	}

	if o.KeepWeight {
		_, err = tx.ExecContext(ctx, `
			UPDATE items
			SET times_answered = times_answered + 1,
			    times_correct = times_correct + ?,
			    is_mastered = ?
			WHERE id = ?
		`, correct, o.Mastered, itemID)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE items
			SET times_answered = times_answered + 1,
			    times_correct = times_correct + ?,
			    is_mastered = ?,
			    weight = ?
			WHERE id = ?
		`, correct, o.Mastered, o.Weight, itemID)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO attempts (item_id, is_correct) VALUES (?, ?)", itemID, o.Correct); err != nil {
		return err
	}

	if o.SiblingDelta != 0 && len(o.SiblingIDs) > 0 {
		query, args, err := sqlx.In(
			"UPDATE items SET weight = weight + ? WHERE id IN (?)", o.SiblingDelta, o.SiblingIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) UpdateItemWeight(ctx context.Context, itemID string, weight float64) error {
	result, err := s.db.ExecContext(ctx, "UPDATE items SET weight = ? WHERE id = ?", weight, itemID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Progress ────────────────────────────────────────────────────────────

func (s *SQLiteStore) Progress(ctx context.Context) (progress.State, error) {
	var st progress.State
	err := s.db.QueryRowxContext(ctx,
		"SELECT max_unlocked_chunk, active_set_size FROM progress WHERE id = 1",
	).Scan(&st.MaxUnlockedChunk, &st.ActiveSetSize)
	if errors.Is(err, sql.ErrNoRows) {
		return progress.InitialState(), nil
	}
	if err != nil {
		return progress.State{}, err
	}
	return st, nil
}

func (s *SQLiteStore) SaveProgress(ctx context.Context, st progress.State) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (id, max_unlocked_chunk, active_set_size)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET max_unlocked_chunk = excluded.max_unlocked_chunk,
		                              active_set_size = excluded.active_set_size
	`, st.MaxUnlockedChunk, st.ActiveSetSize)
	return err
}

// ResetProgress clears all learning statistics while preserving content:
// counters and snapshots zeroed, weights back to the unseen default,
// the attempt log emptied, and progress back to the initial state.
func (s *SQLiteStore) ResetProgress(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE items
		SET times_answered = 0, times_correct = 0, weight = ?, is_mastered = 0
	`, item.UnseenWeight); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM attempts"); err != nil {
		return err
	}

	initial := progress.InitialState()
	if _, err := tx.ExecContext(ctx, `
		UPDATE progress SET max_unlocked_chunk = ?, active_set_size = ? WHERE id = 1
	`, initial.MaxUnlockedChunk, initial.ActiveSetSize); err != nil {
		return err
	}

	return tx.Commit()
}
