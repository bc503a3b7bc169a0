package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestAppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "user-1", "s1",
		Message{Role: RoleUser, Content: "crea una tarea"},
		Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "createTask", Arguments: `{"title":"x"}`}}},
		Message{Role: RoleTool, ToolCallID: "call_1", Content: `{"id":"t1"}`},
	))
	require.NoError(t, s.Append(ctx, "user-1", "s1", Message{Role: RoleAssistant, Content: "Listo"}))
	require.NoError(t, s.Append(ctx, "user-2", "s1", Message{Role: RoleUser, Content: "otro usuario"}))

	msgs, err := s.List(ctx, "user-1", "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	for i, m := range msgs {
		assert.Equal(t, i+1, m.Seq)
		assert.Equal(t, "s1", m.SessionID)
	}
	assert.Equal(t, "crea una tarea", msgs[0].Content)
	assert.Equal(t, []ToolCall{{ID: "call_1", Name: "createTask", Arguments: `{"title":"x"}`}}, msgs[1].ToolCalls)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, "Listo", msgs[3].Content)
	assert.Empty(t, msgs[3].ToolCalls)
}

func TestAppend_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Append(ctx, "", "s1", Message{Role: RoleUser})
	assert.True(t, apperrors.Is(err, apperrors.KindAuth))

	err = s.Append(ctx, "user-1", " ", Message{Role: RoleUser})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	err = s.Append(ctx, "user-1", "s1", Message{Role: "robot"})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	msgs, err := s.List(ctx, "user-1", "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs, "failed append is rolled back")
}

func TestDeleteSessionAndPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "user-1", "s1", Message{Role: RoleUser, Content: "hola"}, Message{Role: RoleAssistant, Content: "hola!"}))

	n, err := s.DeleteSession(ctx, "user-1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msgs, err := s.List(ctx, "user-1", "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// New messages continue the sequence after deleted ones.
	require.NoError(t, s.Append(ctx, "user-1", "s1", Message{Role: RoleUser, Content: "de nuevo"}))
	msgs, err = s.List(ctx, "user-1", "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 3, msgs[0].Seq)

	purged, err := s.Purge(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
}
