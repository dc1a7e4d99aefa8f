package backend_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/arcflow/arcflow/internal/backend"
	"github.com/arcflow/arcflow/pkg/api"
)

func newTestSQLite(t *testing.T) *backend.SQLite {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := backend.NewSQLite(db)
	require.NoError(t, err)
	return s
}

func TestSQLite_CreateProcess_PersistsUserData(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	process, err := s.CreateProcess(ctx, api.Graph{}, nil, "payload")
	require.NoError(t, err)
	assert.NotEmpty(t, process.ID)
	assert.Equal(t, "payload", process.UserData)
}

func TestSQLite_AllocID_IsMonotonicPerProcess(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	process, err := s.CreateProcess(ctx, api.Graph{}, nil, nil)
	require.NoError(t, err)

	_, tok1, err := s.CreateNodeToken(ctx, process, api.Node{ID: 1}, nil)
	require.NoError(t, err)
	_, tok2, err := s.CreateNodeToken(ctx, process, api.Node{ID: 1}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, tok1.ID, tok2.ID)
}

func TestSQLite_SetTokenAttr_SurvivesReload(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	process, err := s.CreateProcess(ctx, api.Graph{}, nil, nil)
	require.NoError(t, err)

	_, tok, err := s.CreateNodeToken(ctx, process, api.Node{ID: 1}, nil)
	require.NoError(t, err)

	process, err = s.SetTokenAttr(ctx, process, tok, "color", "red")
	require.NoError(t, err)

	fresh := &api.Process{ID: process.ID, Graph: process.Graph}
	require.NoError(t, s.LoadAttrs(ctx, fresh))

	v, ok := fresh.AttrValue(tok, "color")
	require.True(t, ok)
	assert.Equal(t, "red", v)
}

func TestSQLite_CompleteNodeToken_DeletesRowsAndAttrs(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	process, err := s.CreateProcess(ctx, api.Graph{}, nil, nil)
	require.NoError(t, err)

	_, tok, err := s.CreateNodeToken(ctx, process, api.Node{ID: 1}, nil)
	require.NoError(t, err)
	process, err = s.SetTokenAttr(ctx, process, tok, "k", "v")
	require.NoError(t, err)

	require.NoError(t, s.CompleteNodeToken(ctx, process, tok))

	fresh := &api.Process{ID: process.ID}
	require.NoError(t, s.LoadAttrs(ctx, fresh))
	_, ok := fresh.AttrValue(tok, "k")
	assert.False(t, ok)
}

func TestSQLite_RemoveTokenAttr(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	process, err := s.CreateProcess(ctx, api.Graph{}, nil, nil)
	require.NoError(t, err)
	_, tok, err := s.CreateNodeToken(ctx, process, api.Node{ID: 1}, nil)
	require.NoError(t, err)

	process, err = s.SetTokenAttr(ctx, process, tok, "k", "v")
	require.NoError(t, err)
	process, err = s.RemoveTokenAttr(ctx, process, tok, "k")
	require.NoError(t, err)

	_, ok := process.AttrValue(tok, "k")
	assert.False(t, ok)
}
