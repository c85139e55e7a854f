// Package taskcache persists a grounded strips.Task keyed by a content hash
// of its domain+problem source and the config knobs that produced it, so a
// caller with the same input can load the stored task with Get instead of
// grounding again (cmd/groundctl only stores tasks). Serialization
// uses rezi (the teacher's own binary encoding, server/dao/sqlite/sessions.go),
// and the index lives in a modernc.org/sqlite database, the teacher's own
// driver for server/dao/sqlite.
package taskcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/dekarrin/rezi"
	_ "modernc.org/sqlite"

	"github.com/keelform/stripsground/internal/strips"
)

// Key is a content hash over the domain/problem AST bytes plus the
// serialized config knobs that influence grounding (spec_full §2's cache
// key: "domain+problem AST and config knobs").
type Key string

// NewKey hashes the given byte blobs (typically the JSON AST of the domain,
// the JSON AST of the problem, and a canonical encoding of the active
// config) into a single cache key.
func NewKey(blobs ...[]byte) Key {
	h := sha256.New()
	for _, b := range blobs {
		h.Write(b)
		h.Write([]byte{0})
	}
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// Store is a sqlite-backed cache of serialized ground tasks.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlite database at path and ensures
// the cache table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("taskcache: opening %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS ground_tasks (
	cache_key   TEXT PRIMARY KEY,
	task_data   BLOB NOT NULL,
	fact_count  INTEGER NOT NULL,
	op_count    INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("taskcache: initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// record is the rezi-encoded shape actually stored; strips.Task carries
// types (IntSet) rezi can't address directly, so the cache stores the
// flattened, purely-slice form and Task reconstructs the sets on load.
type record struct {
	Facts     []strips.Fact
	Operators []strips.Operator
	Init      []int
	Goal      []int
	GoalUnreachable bool
	HasCondEff      bool
}

func toRecord(t *strips.Task) record {
	return record{
		Facts:           t.Facts,
		Operators:       t.Operators,
		Init:            sortedElements(t.Init),
		Goal:            sortedElements(t.Goal),
		GoalUnreachable: t.GoalUnreachable,
		HasCondEff:      t.HasCondEff,
	}
}

func sortedElements(s interface{ Elements() []int }) []int {
	return append([]int(nil), s.Elements()...)
}

func fromRecord(r record) *strips.Task {
	t := strips.NewTask()
	t.Facts = r.Facts
	t.Operators = r.Operators
	for _, f := range r.Init {
		t.Init.Add(f)
	}
	for _, f := range r.Goal {
		t.Goal.Add(f)
	}
	t.GoalUnreachable = r.GoalUnreachable
	t.HasCondEff = r.HasCondEff
	return t
}

// Put serializes task via rezi and upserts it under key.
func (s *Store) Put(key Key, task *strips.Task) error {
	data := rezi.EncBinary(toRecord(task))
	_, err := s.db.Exec(
		`INSERT INTO ground_tasks (cache_key, task_data, fact_count, op_count) VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET task_data=excluded.task_data, fact_count=excluded.fact_count, op_count=excluded.op_count`,
		string(key), data, len(task.Facts), len(task.Operators),
	)
	if err != nil {
		return fmt.Errorf("taskcache: storing %s: %w", key, err)
	}
	return nil
}

// Get loads a previously cached task, returning ok=false on a cache miss.
func (s *Store) Get(key Key) (*strips.Task, bool, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT task_data FROM ground_tasks WHERE cache_key = ?`, string(key)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("taskcache: loading %s: %w", key, err)
	}
	var r record
	if err := rezi.DecBinary(data, &r); err != nil {
		return nil, false, fmt.Errorf("taskcache: decoding %s: %w", key, err)
	}
	return fromRecord(r), true, nil
}
