package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/calendar"
	"github.com/teemow/todoagent/internal/database"
)

var baseTime = time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)

// stepClock advances one minute on every call so creation order is stable.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Minute)
	return c.cur
}

type fakeScheduler struct {
	mu     sync.Mutex
	events []calendar.Event
	owners []string
}

func (f *fakeScheduler) AddEvent(_ context.Context, owner string, ev calendar.Event) calendar.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	f.owners = append(f.owners, owner)
	return calendar.Result{Success: true, EventID: "evt-1", URL: "https://calendar.example/evt-1"}
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	db, err := database.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &stepClock{cur: baseTime}
	opts = append([]Option{WithClock(clock.Now), WithLocation(time.UTC)}, opts...)
	return NewStore(db, opts...)
}

func newTestClient(t *testing.T, owner string, opts ...Option) *Client {
	t.Helper()
	c, err := newTestStore(t, opts...).ForOwner(owner)
	require.NoError(t, err)
	return c
}

func mustCreate(t *testing.T, c *Client, in CreateInput) *Task {
	t.Helper()
	res, err := c.CreateTask(context.Background(), in)
	require.NoError(t, err)
	return res.Task
}

func ptr[T any](v T) *T { return &v }

func TestForOwner_RequiresOwner(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ForOwner("  ")
	assert.True(t, apperrors.Is(err, apperrors.KindAuth))

	c, err := s.ForOwner("user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Owner())
}

func TestCreateTask_Validation(t *testing.T) {
	c := newTestClient(t, "user-1")
	ctx := context.Background()

	tests := []struct {
		name    string
		in      CreateInput
		field   string
		message string
	}{
		{
			name:    "blank title",
			in:      CreateInput{Title: "   "},
			field:   "title",
			message: "El título es requerido",
		},
		{
			name:  "invalid priority",
			in:    CreateInput{Title: "x", Priority: ptr(Priority("urgent"))},
			field: "priority",
		},
		{
			name:  "invalid category",
			in:    CreateInput{Title: "x", Category: ptr(Category("hobby"))},
			field: "category",
		},
		{
			name:  "unparseable due date",
			in:    CreateInput{Title: "x", DueDate: "mañana"},
			field: "dueDate",
		},
		{
			name:    "due date in the past",
			in:      CreateInput{Title: "x", DueDate: "2025-06-01"},
			field:   "dueDate",
			message: "La fecha de vencimiento debe ser futura: 2025-06-01 es 4 día(s) en el pasado (hoy es 2025-06-04)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateTask(ctx, tt.in)
			require.Error(t, err)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Equal(t, tt.field, appErr.Field)
			if tt.message != "" {
				assert.Equal(t, tt.message, appErr.Message)
			}
		})
	}
}

func TestCreateTask_DueDateBoundary(t *testing.T) {
	db, err := database.OpenMemory(context.Background())
	require.NoError(t, err)
	defer db.Close()

	now := baseTime
	s := NewStore(db, WithClock(func() time.Time { return now }), WithLocation(time.UTC))
	c, err := s.ForOwner("user-1")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.CreateTask(ctx, CreateInput{Title: "now", DueDate: now.Format(time.RFC3339)})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	res, err := c.CreateTask(ctx, CreateInput{Title: "soon", DueDate: now.Add(time.Second).Format(time.RFC3339)})
	require.NoError(t, err)
	require.NotNil(t, res.Task.DueDate)
	assert.True(t, res.Task.DueDate.Equal(now.Add(time.Second)))
	assert.Nil(t, res.Calendar, "no scheduler configured")
}

func TestCreateTask_Defaults(t *testing.T) {
	c := newTestClient(t, "user-1")

	task := mustCreate(t, c, CreateInput{Title: "  Comprar pan  "})
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Comprar pan", task.Title)
	assert.False(t, task.Completed)
	assert.Nil(t, task.Priority)
	assert.Nil(t, task.DueDate)

	got, err := c.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateTask_SchedulesCalendarEvent(t *testing.T) {
	sched := &fakeScheduler{}
	c := newTestClient(t, "user-1", WithScheduler(sched))

	res, err := c.CreateTask(context.Background(), CreateInput{
		Title:   "Dentista",
		Details: ptr("Llevar radiografías"),
		DueDate: "2025-06-10T09:00",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Calendar)

	select {
	case result := <-res.Calendar:
		assert.True(t, result.Success)
		assert.Equal(t, "evt-1", result.EventID)
	case <-time.After(5 * time.Second):
		t.Fatal("calendar result not delivered")
	}

	sched.mu.Lock()
	defer sched.mu.Unlock()
	require.Len(t, sched.events, 1)
	ev := sched.events[0]
	assert.Equal(t, "user-1", sched.owners[0])
	assert.Equal(t, "Dentista", ev.Title)
	assert.Equal(t, "Llevar radiografías", ev.Description)
	assert.Equal(t, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), ev.Start.UTC())
	assert.Equal(t, calendar.DefaultEventDuration, ev.End.Sub(ev.Start))

	// Tasks without a due date never reach the calendar.
	res, err = c.CreateTask(context.Background(), CreateInput{Title: "Sin fecha"})
	require.NoError(t, err)
	assert.Nil(t, res.Calendar)
}

func TestCreateTask_FolderName(t *testing.T) {
	c := newTestClient(t, "user-1")
	ctx := context.Background()

	archive, err := c.CreateFolder(ctx, "work-archive", nil)
	require.NoError(t, err)
	work, err := c.CreateFolder(ctx, "Work", nil)
	require.NoError(t, err)
	music, err := c.CreateFolder(ctx, "Música", nil)
	require.NoError(t, err)
	// Rows written by older clients may carry surrounding whitespace.
	_, err = c.store.db.ExecContext(ctx, c.store.db.Rebind(`UPDATE folders SET name = ? WHERE id = ?`), "  Música ", music.ID)
	require.NoError(t, err)

	tests := []struct {
		name     string
		folder   string
		expected *string
		notFound bool
	}{
		{name: "exact match beats prefix", folder: "work", expected: &work.ID},
		{name: "prefix match", folder: "work-arch", expected: &archive.ID},
		{name: "stored name is trimmed", folder: "MÚSICA", expected: &music.ID},
		{name: "special name means no folder", folder: "Sin carpeta", expected: nil},
		{name: "english special name", folder: "none", expected: nil},
		{name: "no match", folder: "personal", notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.CreateTask(ctx, CreateInput{Title: "x", FolderName: ptr(tt.folder)})
			if tt.notFound {
				assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
				assert.EqualError(t, err, "No se encontró la carpeta indicada por nombre")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Task.FolderID)
		})
	}
}

func TestUpdateTask(t *testing.T) {
	c := newTestClient(t, "user-1")
	ctx := context.Background()

	task := mustCreate(t, c, CreateInput{
		Title:    "Informe",
		Priority: ptr(PriorityLow),
		Details:  ptr("primer borrador"),
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := c.UpdateTask(ctx, task.ID, Patch{})
		assert.True(t, apperrors.Is(err, apperrors.KindValidation))
		assert.EqualError(t, err, "Sin cambios")
	})

	t.Run("single field leaves others unchanged", func(t *testing.T) {
		updated, err := c.UpdateTask(ctx, task.ID, Patch{Completed: Some(true)})
		require.NoError(t, err)
		assert.True(t, updated.Completed)
		assert.Equal(t, "Informe", updated.Title)
		assert.Equal(t, ptr(PriorityLow), updated.Priority)
		assert.Equal(t, ptr("primer borrador"), updated.Details)
		assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))
	})

	t.Run("null clears nullable field", func(t *testing.T) {
		updated, err := c.UpdateTask(ctx, task.ID, Patch{Details: Null[string]()})
		require.NoError(t, err)
		assert.Nil(t, updated.Details)
		assert.Equal(t, ptr(PriorityLow), updated.Priority)
	})

	t.Run("invalid enum", func(t *testing.T) {
		_, err := c.UpdateTask(ctx, task.ID, Patch{Priority: Some(Priority("urgent"))})
		assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	})

	t.Run("past due date is allowed on update", func(t *testing.T) {
		updated, err := c.UpdateTask(ctx, task.ID, Patch{DueDate: Some("2025-01-01")})
		require.NoError(t, err)
		require.NotNil(t, updated.DueDate)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), updated.DueDate.UTC())
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := c.UpdateTask(ctx, "does-not-exist", Patch{Title: Some("x")})
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("other owner", func(t *testing.T) {
		other, err := c.store.ForOwner("user-2")
		require.NoError(t, err)
		_, err = other.UpdateTask(ctx, task.ID, Patch{Title: Some("robado")})
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})
}

func TestDeleteTask(t *testing.T) {
	c := newTestClient(t, "user-1")
	ctx := context.Background()

	task := mustCreate(t, c, CreateInput{Title: "Borrar"})
	keep := mustCreate(t, c, CreateInput{Title: "Mantener"})

	res, err := c.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, &DeleteResult{DeletedID: task.ID, Title: "Borrar"}, res)

	_, err = c.DeleteTask(ctx, task.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	assert.EqualError(t, err, "No encontrada")

	found, err := c.Search(ctx, SearchFilter{Query: "borrar"})
	require.NoError(t, err)
	assert.Empty(t, found.Items)

	all, err := c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)
}

func TestDeleteTasksBulk(t *testing.T) {
	c := newTestClient(t, "user-1")
	ctx := context.Background()

	a := mustCreate(t, c, CreateInput{Title: "a"})
	b := mustCreate(t, c, CreateInput{Title: "b"})
	mustCreate(t, c, CreateInput{Title: "c"})

	t.Run("without confirmation nothing changes", func(t *testing.T) {
		_, err := c.DeleteTasksBulk(ctx, []string{a.ID, b.ID}, false)
		assert.True(t, apperrors.Is(err, apperrors.KindConfirmationRequired))

		all, err := c.ListTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("confirmed", func(t *testing.T) {
		res, err := c.DeleteTasksBulk(ctx, []string{a.ID, "", b.ID, a.ID, "missing"}, true)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Deleted)
		assert.Equal(t, []BulkOutcome{
			{ID: a.ID, Status: BulkStatusDeleted},
			{ID: b.ID, Status: BulkStatusDeleted},
			{ID: "missing", Status: BulkStatusNotFound},
		}, res.Results)

		all, err := c.ListTasks(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "c", all[0].Title)
	})

	t.Run("empty list", func(t *testing.T) {
		res, err := c.DeleteTasksBulk(ctx, nil, true)
		require.NoError(t, err)
		assert.Zero(t, res.Deleted)
		assert.Empty(t, res.Results)
	})
}

func TestFolders(t *testing.T) {
	c := newTestClient(t, "user-1")
	ctx := context.Background()

	root, err := c.CreateFolder(ctx, "Casa", nil)
	require.NoError(t, err)
	child, err := c.CreateFolder(ctx, "Cocina", &root.ID)
	require.NoError(t, err)
	grandchild, err := c.CreateFolder(ctx, "Despensa", &child.ID)
	require.NoError(t, err)

	_, err = c.UpdateFolder(ctx, root.ID, FolderPatch{ParentID: Some(grandchild.ID)})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation), "cycles are rejected")

	renamed, err := c.UpdateFolder(ctx, child.ID, FolderPatch{Name: Some("Cocina nueva")})
	require.NoError(t, err)
	assert.Equal(t, "Cocina nueva", renamed.Name)

	task := mustCreate(t, c, CreateInput{Title: "Harina", FolderID: &child.ID})

	require.NoError(t, c.DeleteFolder(ctx, child.ID))

	got, err := c.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FolderID)

	moved, err := c.GetFolder(ctx, grandchild.ID)
	require.NoError(t, err)
	assert.Equal(t, &root.ID, moved.ParentID)

	folders, err := c.ListFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 2)

	assert.True(t, apperrors.Is(c.DeleteFolder(ctx, child.ID), apperrors.KindNotFound))
}

func TestPurgeDeleted(t *testing.T) {
	s := newTestStore(t)
	c, err := s.ForOwner("user-1")
	require.NoError(t, err)
	ctx := context.Background()

	gone := mustCreate(t, c, CreateInput{Title: "vieja"})
	mustCreate(t, c, CreateInput{Title: "viva"})
	_, err = c.DeleteTask(ctx, gone.ID)
	require.NoError(t, err)

	n, err := s.PurgeDeleted(ctx, baseTime)
	require.NoError(t, err)
	assert.Zero(t, n, "deleted after cutoff")

	n, err = s.PurgeDeleted(ctx, baseTime.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := c.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
