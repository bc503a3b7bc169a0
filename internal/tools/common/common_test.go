package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/auth"
	"github.com/teemow/todoagent/internal/database"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
)

func newServerContext(t *testing.T, opts ...server.Option) *server.ServerContext {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sc := server.NewServerContext(ctx, db, tasks.NewStore(db), opts...)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestTaskClient(t *testing.T) {
	sc := newServerContext(t)

	_, err := TaskClient(context.Background(), sc)
	assert.True(t, apperrors.Is(err, apperrors.KindAuth))

	ctx := auth.WithIdentity(context.Background(), auth.Identity{Owner: "user-1"})
	c, err := TaskClient(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Owner())
}

func TestInstrumented(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	sc := newServerContext(t, server.WithAuditLogger(audit))
	ctx := auth.WithIdentity(context.Background(), auth.Identity{Owner: "user-1", Email: "ana@example.com"})

	t.Run("success", func(t *testing.T) {
		buf.Reset()
		call := Instrumented(sc, instrumentation.TransportAgent, "listFolders", func(context.Context, json.RawMessage) (any, error) {
			return []string{"a"}, nil
		})
		out, err := call(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, out)
		assert.Contains(t, buf.String(), "listFolders")
		assert.NotContains(t, buf.String(), "user-1", "owner ids are hashed")
	})

	t.Run("error", func(t *testing.T) {
		call := Instrumented(sc, instrumentation.TransportAgent, "deleteTask", func(context.Context, json.RawMessage) (any, error) {
			return nil, errors.New("boom")
		})
		_, err := call(ctx, nil)
		assert.EqualError(t, err, "boom")
	})

	t.Run("panic", func(t *testing.T) {
		call := Instrumented(sc, instrumentation.TransportMCP, "searchTasks", func(context.Context, json.RawMessage) (any, error) {
			panic("nil map")
		})
		out, err := call(ctx, nil)
		assert.Nil(t, out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil map")
	})
}
