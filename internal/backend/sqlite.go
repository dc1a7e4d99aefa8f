package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/arcflow/arcflow/pkg/api"
)

// SQLite is a durable api.Engine backed by modernc.org/sqlite. It expects an
// *sql.DB opened against that driver; the caller owns the *sql.DB's
// lifetime.
//
//	db, err := sql.Open("sqlite", "file:process.db")
//	eng, err := backend.NewSQLite(db)
type SQLite struct {
	db *sql.DB
}

var _ api.Engine = (*SQLite)(nil)

// NewSQLite initializes the schema in db, if not already present, and
// returns a SQLite engine backed by it.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS processes (
			id TEXT PRIMARY KEY,
			user_data BLOB
		);
		CREATE TABLE IF NOT EXISTS node_tokens (
			process_id TEXT NOT NULL,
			token_id INTEGER NOT NULL,
			node_id INTEGER NOT NULL,
			PRIMARY KEY (process_id, token_id)
		);
		CREATE TABLE IF NOT EXISTS arc_tokens (
			process_id TEXT NOT NULL,
			token_id INTEGER NOT NULL,
			arc_id INTEGER NOT NULL,
			parent_node_token_id INTEGER NOT NULL,
			PRIMARY KEY (process_id, token_id)
		);
		CREATE TABLE IF NOT EXISTS token_attrs (
			process_id TEXT NOT NULL,
			node_token_id INTEGER NOT NULL,
			key TEXT NOT NULL,
			value BLOB,
			PRIMARY KEY (process_id, node_token_id, key)
		);
		CREATE TABLE IF NOT EXISTS id_counters (
			process_id TEXT PRIMARY KEY,
			next_node_token INTEGER NOT NULL DEFAULT 1,
			next_arc_token INTEGER NOT NULL DEFAULT 1
		);
	`)
	return err
}

func (s *SQLite) CreateProcess(ctx context.Context, graph api.Graph, registry api.Registry, userData any) (*api.Process, error) {
	encoded, err := encodeValue(userData)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO processes (id, user_data) VALUES (?, ?)`, id, encoded); err != nil {
		return nil, fmt.Errorf("arcflow: insert process: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO id_counters (process_id) VALUES (?)`, id); err != nil {
		return nil, fmt.Errorf("arcflow: insert id counters: %w", err)
	}

	return &api.Process{
		ID:       id,
		Graph:    graph,
		Registry: registry,
		Attrs:    make(map[int][]api.TokenAttr),
		UserData: userData,
	}, nil
}

func (s *SQLite) allocID(ctx context.Context, processID, column string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int
	query := fmt.Sprintf(`SELECT %s FROM id_counters WHERE process_id = ?`, column)
	if err := tx.QueryRowContext(ctx, query, processID).Scan(&id); err != nil {
		return 0, fmt.Errorf("arcflow: read id counter: %w", err)
	}

	update := fmt.Sprintf(`UPDATE id_counters SET %s = ? WHERE process_id = ?`, column)
	if _, err := tx.ExecContext(ctx, update, id+1, processID); err != nil {
		return 0, fmt.Errorf("arcflow: bump id counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SQLite) CreateNodeToken(ctx context.Context, process *api.Process, node api.Node, incoming []api.ArcToken) (*api.Process, api.NodeToken, error) {
	id, err := s.allocID(ctx, process.ID, "next_node_token")
	if err != nil {
		return nil, api.NodeToken{}, err
	}
	token := api.NodeToken{ID: id, NodeID: node.ID}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO node_tokens (process_id, token_id, node_id) VALUES (?, ?, ?)`,
		process.ID, token.ID, token.NodeID); err != nil {
		return nil, api.NodeToken{}, fmt.Errorf("arcflow: insert node token: %w", err)
	}

	if len(incoming) > 0 {
		var merged []api.TokenAttr
		for _, in := range incoming {
			merged = append(merged, process.Attrs[in.ParentNodeTokenID]...)
		}
		for _, a := range merged {
			if err := s.writeAttr(ctx, process.ID, token.ID, a.Key, a.Value); err != nil {
				return nil, api.NodeToken{}, err
			}
		}
		if len(merged) > 0 {
			process.ReplaceTokenAttrs(token.ID, merged)
		}
	}

	return process, token, nil
}

func (s *SQLite) CreateArcToken(ctx context.Context, process *api.Process, arc api.Arc, parent api.NodeToken) (*api.Process, api.ArcToken, error) {
	id, err := s.allocID(ctx, process.ID, "next_arc_token")
	if err != nil {
		return nil, api.ArcToken{}, err
	}
	token := api.ArcToken{ID: id, ArcID: arc.ID, ParentNodeTokenID: parent.ID}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO arc_tokens (process_id, token_id, arc_id, parent_node_token_id) VALUES (?, ?, ?, ?)`,
		process.ID, token.ID, token.ArcID, token.ParentNodeTokenID); err != nil {
		return nil, api.ArcToken{}, fmt.Errorf("arcflow: insert arc token: %w", err)
	}

	return process, token, nil
}

func (s *SQLite) CompleteNodeToken(ctx context.Context, process *api.Process, token api.NodeToken) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM node_tokens WHERE process_id = ? AND token_id = ?`, process.ID, token.ID); err != nil {
		return fmt.Errorf("arcflow: delete node token: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM token_attrs WHERE process_id = ? AND node_token_id = ?`, process.ID, token.ID); err != nil {
		return fmt.Errorf("arcflow: delete node token attrs: %w", err)
	}
	delete(process.Attrs, token.ID)
	return nil
}

func (s *SQLite) CompleteArcToken(ctx context.Context, process *api.Process, token api.ArcToken) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM arc_tokens WHERE process_id = ? AND token_id = ?`, process.ID, token.ID); err != nil {
		return fmt.Errorf("arcflow: delete arc token: %w", err)
	}
	return nil
}

// TransactionBoundary is a no-op: every mutating call above already commits
// on its own. It exists so accept actions that want an explicit persistence
// checkpoint (e.g. before an external side effect) have one to call.
func (s *SQLite) TransactionBoundary(ctx context.Context, process *api.Process) error {
	return nil
}

func (s *SQLite) writeAttr(ctx context.Context, processID string, nodeTokenID int, key string, value any) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO token_attrs (process_id, node_token_id, key, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT (process_id, node_token_id, key) DO UPDATE SET value = excluded.value`,
		processID, nodeTokenID, key, encoded)
	if err != nil {
		return fmt.Errorf("arcflow: upsert token attr: %w", err)
	}
	return nil
}

func (s *SQLite) SetTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string, value any) (*api.Process, error) {
	if err := s.writeAttr(ctx, process.ID, token.ID, key, value); err != nil {
		return nil, err
	}
	process.SetAttr(token.ID, key, value)
	return process, nil
}

func (s *SQLite) RemoveTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string) (*api.Process, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM token_attrs WHERE process_id = ? AND node_token_id = ? AND key = ?`,
		process.ID, token.ID, key); err != nil {
		return nil, fmt.Errorf("arcflow: delete token attr: %w", err)
	}
	process.RemoveAttr(token.ID, key)
	return process, nil
}

// LoadAttrs reloads every attribute row for a process from disk into
// process.Attrs. Callers rehydrating a Process after a crash should call
// this once, after restoring its NodeTokens/ArcTokens by other means.
func (s *SQLite) LoadAttrs(ctx context.Context, process *api.Process) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_token_id, key, value FROM token_attrs WHERE process_id = ?`, process.ID)
	if err != nil {
		return fmt.Errorf("arcflow: query token attrs: %w", err)
	}
	defer rows.Close()

	attrs := make(map[int][]api.TokenAttr)
	for rows.Next() {
		var nodeTokenID int
		var key string
		var raw []byte
		if err := rows.Scan(&nodeTokenID, &key, &raw); err != nil {
			return err
		}
		value, err := decodeValue(raw)
		if err != nil {
			return err
		}
		attrs[nodeTokenID] = append(attrs[nodeTokenID], api.TokenAttr{Key: key, Value: value})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	process.Attrs = attrs
	return nil
}

// ErrProcessNotFound is returned by lookups against a process id absent
// from the database.
var ErrProcessNotFound = errors.New("arcflow: process not found")

// LoadProcess rehydrates a Process from disk by id, for callers resuming
// after a restart who no longer hold the in-memory Process value. graph and
// registry are supplied by the caller, since the engine never persists them
// (spec.md §3 "Ownership").
func (s *SQLite) LoadProcess(ctx context.Context, graph api.Graph, registry api.Registry, processID string) (*api.Process, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT user_data FROM processes WHERE id = ?`, processID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProcessNotFound, processID)
	}
	if err != nil {
		return nil, fmt.Errorf("arcflow: select process: %w", err)
	}
	userData, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}

	process := &api.Process{
		ID:       processID,
		Graph:    graph,
		Registry: registry,
		Attrs:    make(map[int][]api.TokenAttr),
		UserData: userData,
	}

	nodeRows, err := s.db.QueryContext(ctx,
		`SELECT token_id, node_id FROM node_tokens WHERE process_id = ?`, processID)
	if err != nil {
		return nil, fmt.Errorf("arcflow: query node tokens: %w", err)
	}
	for nodeRows.Next() {
		var t api.NodeToken
		if err := nodeRows.Scan(&t.ID, &t.NodeID); err != nil {
			nodeRows.Close()
			return nil, err
		}
		process.NodeTokens = append(process.NodeTokens, t)
	}
	if err := nodeRows.Err(); err != nil {
		nodeRows.Close()
		return nil, err
	}
	nodeRows.Close()

	arcRows, err := s.db.QueryContext(ctx,
		`SELECT token_id, arc_id, parent_node_token_id FROM arc_tokens WHERE process_id = ?`, processID)
	if err != nil {
		return nil, fmt.Errorf("arcflow: query arc tokens: %w", err)
	}
	for arcRows.Next() {
		var t api.ArcToken
		if err := arcRows.Scan(&t.ID, &t.ArcID, &t.ParentNodeTokenID); err != nil {
			arcRows.Close()
			return nil, err
		}
		process.ArcTokens = append(process.ArcTokens, t)
	}
	if err := arcRows.Err(); err != nil {
		arcRows.Close()
		return nil, err
	}
	arcRows.Close()

	if err := s.LoadAttrs(ctx, process); err != nil {
		return nil, err
	}
	return process, nil
}
