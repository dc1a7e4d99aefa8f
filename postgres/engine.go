// Package postgres provides a PostgreSQL-backed api.Engine, for deployments
// that want durable process/token state in the same database as the rest
// of their system.
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/arcflow/arcflow/pkg/api"
)

// Engine is an api.Engine backed by PostgreSQL, addressed through
// database/sql with github.com/jackc/pgx/v5 registered as the "pgx" driver
// by this package's import of github.com/jackc/pgx/v5/stdlib.
//
//	db, _ := sql.Open("pgx", dsn)
//	eng, err := postgres.NewEngine(db)
type Engine struct {
	db *sql.DB
}

var _ api.Engine = (*Engine)(nil)

// NewEngine initializes the schema in db, if not already present, and
// returns an Engine backed by it.
func NewEngine(db *sql.DB) (*Engine, error) {
	e := &Engine{db: db}
	if err := e.initSchema(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) initSchema() error {
	_, err := e.db.Exec(`
		CREATE TABLE IF NOT EXISTS arcflow_processes (
			id TEXT PRIMARY KEY,
			user_data BYTEA,
			next_node_token INTEGER NOT NULL DEFAULT 1,
			next_arc_token INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE IF NOT EXISTS arcflow_node_tokens (
			process_id TEXT NOT NULL,
			token_id INTEGER NOT NULL,
			node_id INTEGER NOT NULL,
			PRIMARY KEY (process_id, token_id)
		);
		CREATE TABLE IF NOT EXISTS arcflow_arc_tokens (
			process_id TEXT NOT NULL,
			token_id INTEGER NOT NULL,
			arc_id INTEGER NOT NULL,
			parent_node_token_id INTEGER NOT NULL,
			PRIMARY KEY (process_id, token_id)
		);
		CREATE TABLE IF NOT EXISTS arcflow_token_attrs (
			process_id TEXT NOT NULL,
			node_token_id INTEGER NOT NULL,
			key TEXT NOT NULL,
			value BYTEA,
			PRIMARY KEY (process_id, node_token_id, key)
		);
	`)
	return err
}

func (e *Engine) CreateProcess(ctx context.Context, graph api.Graph, registry api.Registry, userData any) (*api.Process, error) {
	encoded, err := encodeValue(userData)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if _, err := e.db.ExecContext(ctx,
		`INSERT INTO arcflow_processes (id, user_data) VALUES ($1, $2)`, id, encoded); err != nil {
		return nil, fmt.Errorf("arcflow/postgres: insert process: %w", err)
	}
	return &api.Process{
		ID:       id,
		Graph:    graph,
		Registry: registry,
		Attrs:    make(map[int][]api.TokenAttr),
		UserData: userData,
	}, nil
}

func (e *Engine) allocID(ctx context.Context, processID, column string) (int, error) {
	query := fmt.Sprintf(
		`UPDATE arcflow_processes SET %s = %s + 1 WHERE id = $1 RETURNING %s - 1`, column, column, column)
	var id int
	if err := e.db.QueryRowContext(ctx, query, processID).Scan(&id); err != nil {
		return 0, fmt.Errorf("arcflow/postgres: allocate id: %w", err)
	}
	return id, nil
}

func (e *Engine) CreateNodeToken(ctx context.Context, process *api.Process, node api.Node, incoming []api.ArcToken) (*api.Process, api.NodeToken, error) {
	id, err := e.allocID(ctx, process.ID, "next_node_token")
	if err != nil {
		return nil, api.NodeToken{}, err
	}
	token := api.NodeToken{ID: id, NodeID: node.ID}

	if _, err := e.db.ExecContext(ctx,
		`INSERT INTO arcflow_node_tokens (process_id, token_id, node_id) VALUES ($1, $2, $3)`,
		process.ID, token.ID, token.NodeID); err != nil {
		return nil, api.NodeToken{}, fmt.Errorf("arcflow/postgres: insert node token: %w", err)
	}

	if len(incoming) > 0 {
		var merged []api.TokenAttr
		for _, in := range incoming {
			merged = append(merged, process.Attrs[in.ParentNodeTokenID]...)
		}
		for _, a := range merged {
			if err := e.writeAttr(ctx, process.ID, token.ID, a.Key, a.Value); err != nil {
				return nil, api.NodeToken{}, err
			}
		}
		if len(merged) > 0 {
			process.ReplaceTokenAttrs(token.ID, merged)
		}
	}

	return process, token, nil
}

func (e *Engine) CreateArcToken(ctx context.Context, process *api.Process, arc api.Arc, parent api.NodeToken) (*api.Process, api.ArcToken, error) {
	id, err := e.allocID(ctx, process.ID, "next_arc_token")
	if err != nil {
		return nil, api.ArcToken{}, err
	}
	token := api.ArcToken{ID: id, ArcID: arc.ID, ParentNodeTokenID: parent.ID}

	if _, err := e.db.ExecContext(ctx,
		`INSERT INTO arcflow_arc_tokens (process_id, token_id, arc_id, parent_node_token_id) VALUES ($1, $2, $3, $4)`,
		process.ID, token.ID, token.ArcID, token.ParentNodeTokenID); err != nil {
		return nil, api.ArcToken{}, fmt.Errorf("arcflow/postgres: insert arc token: %w", err)
	}

	return process, token, nil
}

func (e *Engine) CompleteNodeToken(ctx context.Context, process *api.Process, token api.NodeToken) error {
	if _, err := e.db.ExecContext(ctx,
		`DELETE FROM arcflow_node_tokens WHERE process_id = $1 AND token_id = $2`, process.ID, token.ID); err != nil {
		return fmt.Errorf("arcflow/postgres: delete node token: %w", err)
	}
	if _, err := e.db.ExecContext(ctx,
		`DELETE FROM arcflow_token_attrs WHERE process_id = $1 AND node_token_id = $2`, process.ID, token.ID); err != nil {
		return fmt.Errorf("arcflow/postgres: delete node token attrs: %w", err)
	}
	delete(process.Attrs, token.ID)
	return nil
}

func (e *Engine) CompleteArcToken(ctx context.Context, process *api.Process, token api.ArcToken) error {
	if _, err := e.db.ExecContext(ctx,
		`DELETE FROM arcflow_arc_tokens WHERE process_id = $1 AND token_id = $2`, process.ID, token.ID); err != nil {
		return fmt.Errorf("arcflow/postgres: delete arc token: %w", err)
	}
	return nil
}

// TransactionBoundary is a no-op: every write above already commits on its
// own statement.
func (e *Engine) TransactionBoundary(ctx context.Context, process *api.Process) error {
	return nil
}

func (e *Engine) writeAttr(ctx context.Context, processID string, nodeTokenID int, key string, value any) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}
	_, err = e.db.ExecContext(ctx,
		`INSERT INTO arcflow_token_attrs (process_id, node_token_id, key, value) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (process_id, node_token_id, key) DO UPDATE SET value = excluded.value`,
		processID, nodeTokenID, key, encoded)
	if err != nil {
		return fmt.Errorf("arcflow/postgres: upsert token attr: %w", err)
	}
	return nil
}

func (e *Engine) SetTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string, value any) (*api.Process, error) {
	if err := e.writeAttr(ctx, process.ID, token.ID, key, value); err != nil {
		return nil, err
	}
	process.SetAttr(token.ID, key, value)
	return process, nil
}

func (e *Engine) RemoveTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string) (*api.Process, error) {
	if _, err := e.db.ExecContext(ctx,
		`DELETE FROM arcflow_token_attrs WHERE process_id = $1 AND node_token_id = $2 AND key = $3`,
		process.ID, token.ID, key); err != nil {
		return nil, fmt.Errorf("arcflow/postgres: delete token attr: %w", err)
	}
	process.RemoveAttr(token.ID, key)
	return process, nil
}

// ErrProcessNotFound is returned by lookups against a process id absent
// from the database.
var ErrProcessNotFound = errors.New("arcflow/postgres: process not found")

// LoadProcess rehydrates a Process from disk by id, for callers resuming
// after a restart who no longer hold the in-memory Process value. graph and
// registry are supplied by the caller, since the engine never persists them
// (spec.md §3 "Ownership").
func (e *Engine) LoadProcess(ctx context.Context, graph api.Graph, registry api.Registry, processID string) (*api.Process, error) {
	var raw []byte
	err := e.db.QueryRowContext(ctx,
		`SELECT user_data FROM arcflow_processes WHERE id = $1`, processID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProcessNotFound, processID)
	}
	if err != nil {
		return nil, fmt.Errorf("arcflow/postgres: select process: %w", err)
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

	nodeRows, err := e.db.QueryContext(ctx,
		`SELECT token_id, node_id FROM arcflow_node_tokens WHERE process_id = $1`, processID)
	if err != nil {
		return nil, fmt.Errorf("arcflow/postgres: query node tokens: %w", err)
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

	arcRows, err := e.db.QueryContext(ctx,
		`SELECT token_id, arc_id, parent_node_token_id FROM arcflow_arc_tokens WHERE process_id = $1`, processID)
	if err != nil {
		return nil, fmt.Errorf("arcflow/postgres: query arc tokens: %w", err)
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

	attrRows, err := e.db.QueryContext(ctx,
		`SELECT node_token_id, key, value FROM arcflow_token_attrs WHERE process_id = $1`, processID)
	if err != nil {
		return nil, fmt.Errorf("arcflow/postgres: query token attrs: %w", err)
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var nodeTokenID int
		var key string
		var value []byte
		if err := attrRows.Scan(&nodeTokenID, &key, &value); err != nil {
			return nil, err
		}
		decoded, err := decodeValue(value)
		if err != nil {
			return nil, err
		}
		process.Attrs[nodeTokenID] = append(process.Attrs[nodeTokenID], api.TokenAttr{Key: key, Value: decoded})
	}
	if err := attrRows.Err(); err != nil {
		return nil, err
	}

	return process, nil
}

func encodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, fmt.Errorf("arcflow/postgres: encode value: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeValue mirrors internal/backend/codec.go's decoder: interface-boxed
// decoding first, falling back to a handful of common concrete types.
func decodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var iv any
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&iv); err == nil {
		return iv, nil
	} else if !mustRetryAsConcrete(err) {
		return nil, fmt.Errorf("arcflow/postgres: decode value: %w", err)
	}

	candidates := []any{
		new(string), new([]byte), new(int), new(int64), new(float64), new(bool),
		new(map[string]any), new(map[int]any), new([]any), new([]string), new([]int),
	}
	for _, c := range candidates {
		if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(c); err == nil {
			return reflect.ValueOf(c).Elem().Interface(), nil
		}
	}
	return nil, errors.New("arcflow/postgres: unable to decode gob value")
}

func mustRetryAsConcrete(err error) bool {
	s := err.Error()
	return strings.Contains(s, "can only be decoded from remote interface") &&
		strings.Contains(s, "received concrete type")
}
