package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/calendar"
	"github.com/teemow/todoagent/internal/database"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

// Scheduler creates calendar events for tasks with a due date.
// Implementations must not fail: problems are reported in the Result.
type Scheduler interface {
	AddEvent(ctx context.Context, owner string, event calendar.Event) calendar.Result
}

// calendarTimeout bounds the detached calendar call made after a task is created.
const calendarTimeout = 30 * time.Second

// Store is the process-wide task store. It holds no per-caller state; use
// ForOwner to obtain a Client scoped to one authenticated owner.
type Store struct {
	db        *database.DB
	scheduler Scheduler
	now       func() time.Time
	loc       *time.Location
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// Option configures a Store
type Option func(*Store)

// WithScheduler enables calendar events for tasks created with a due date.
func WithScheduler(s Scheduler) Option {
	return func(st *Store) { st.scheduler = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// WithLocation sets the zone used for calendar boundaries and for due dates
// given without an offset.
func WithLocation(loc *time.Location) Option {
	return func(st *Store) {
		if loc != nil {
			st.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(st *Store) {
		if logger != nil {
			st.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(st *Store) { st.metrics = m }
}

// NewStore creates a Store around an opened, migrated database.
func NewStore(db *database.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		now:    time.Now,
		loc:    time.Local,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone used for local-calendar computations.
func (s *Store) Location() *time.Location {
	return s.loc
}

// ForOwner returns a Client bound to owner. An empty owner is an AuthError.
func (s *Store) ForOwner(owner string) (*Client, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, apperrors.Auth("No autenticado")
	}
	return &Client{store: s, owner: owner}, nil
}

// Client performs task and folder operations on behalf of one owner
type Client struct {
	store *Store
	owner string
}

// Owner returns the identity this client is bound to.
func (c *Client) Owner() string {
	return c.owner
}

func (c *Client) now() time.Time {
	return c.store.now().UTC()
}

// observe records metrics and a span for one store operation.
func (c *Client) observe(ctx context.Context, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := instrumentation.StartStoreSpan(ctx, operation)
	return ctx, func(err error) {
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
		c.store.metrics.RecordStoreOperation(ctx, operation, instrumentation.Status(err), time.Since(start))
	}
}

const taskColumns = `id, owner_id, title, completed, priority, category, details, due_date, folder_id, created_at, updated_at, deleted_at`

// CreateResult is the outcome of CreateTask. Calendar is nil when the task has
// no due date or no scheduler is configured; otherwise it receives exactly one
// Result and is then closed.
type CreateResult struct {
	Task     *Task
	Calendar <-chan calendar.Result
}

// CreateTask validates input and inserts a new task.
func (c *Client) CreateTask(ctx context.Context, in CreateInput) (res *CreateResult, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationCreate)
	defer func() { done(err) }()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.Validation("title", "El título es requerido")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, invalidPriority(*in.Priority)
	}
	if in.Category != nil && !in.Category.Valid() {
		return nil, invalidCategory(*in.Category)
	}

	now := c.now()
	var due *time.Time
	if strings.TrimSpace(in.DueDate) != "" {
		d, err := c.store.parseFutureDueDate(in.DueDate, now)
		if err != nil {
			return nil, err
		}
		due = &d
	}

	folderID, err := c.resolveFolderRef(ctx, in.FolderID, in.FolderName)
	if err != nil {
		return nil, err
	}

	task := &Task{
		ID:        uuid.NewString(),
		OwnerID:   c.owner,
		Title:     title,
		Priority:  in.Priority,
		Category:  in.Category,
		Details:   in.Details,
		DueDate:   due,
		FolderID:  folderID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = c.store.db.ExecContext(ctx, c.store.db.Rebind(`
INSERT INTO tasks (id, owner_id, title, completed, priority, category, details, due_date, folder_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		task.ID, task.OwnerID, task.Title, false, task.Priority, task.Category, task.Details,
		task.DueDate, task.FolderID, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	c.store.logger.Debug("task created", logging.Owner(c.owner), logging.TaskID(task.ID))

	return &CreateResult{Task: task, Calendar: c.scheduleEvent(ctx, task)}, nil
}

// scheduleEvent starts the best-effort calendar insertion for a task with a
// due date. The call runs detached from ctx cancellation so that a finished
// request does not abort it.
func (c *Client) scheduleEvent(ctx context.Context, task *Task) <-chan calendar.Result {
	if c.store.scheduler == nil || task.DueDate == nil {
		return nil
	}

	start := task.DueDate.In(c.store.loc)
	event := calendar.Event{
		Title:    task.Title,
		Start:    start,
		End:      start.Add(calendar.DefaultEventDuration),
		TimeZone: calendar.ZoneName(c.store.loc),
	}
	if task.Details != nil {
		event.Description = *task.Details
	}

	ch := make(chan calendar.Result, 1)
	go func() {
		defer close(ch)
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), calendarTimeout)
		defer cancel()
		ch <- c.store.scheduler.AddEvent(cctx, c.owner, event)
	}()
	return ch
}

// GetTask returns one live task.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	err := c.store.db.GetContext(ctx, &t, c.store.db.Rebind(`SELECT `+taskColumns+`
FROM tasks WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`), id, c.owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("No encontrada")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// UpdateTask applies the fields set in patch to one owned, live task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch Patch) (task *Task, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationUpdate)
	defer func() { done(err) }()

	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("taskId", "taskId es requerido")
	}
	if patch.IsEmpty() {
		return nil, apperrors.Validation("", "Sin cambios")
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Title.Set {
		title := strings.TrimSpace(patch.Title.Value)
		if patch.Title.Null || title == "" {
			return nil, apperrors.Validation("title", "El título no puede estar vacío")
		}
		set("title", title)
	}
	if patch.Completed.Set {
		if patch.Completed.Null {
			return nil, apperrors.Validation("completed", "completed no puede ser null")
		}
		set("completed", patch.Completed.Value)
	}
	if patch.Priority.Set {
		if patch.Priority.Null {
			set("priority", nil)
		} else if !patch.Priority.Value.Valid() {
			return nil, invalidPriority(patch.Priority.Value)
		} else {
			set("priority", patch.Priority.Value)
		}
	}
	if patch.Category.Set {
		if patch.Category.Null {
			set("category", nil)
		} else if !patch.Category.Value.Valid() {
			return nil, invalidCategory(patch.Category.Value)
		} else {
			set("category", patch.Category.Value)
		}
	}
	if patch.Details.Set {
		if patch.Details.Null {
			set("details", nil)
		} else {
			set("details", patch.Details.Value)
		}
	}
	if patch.DueDate.Set {
		if patch.DueDate.Null || strings.TrimSpace(patch.DueDate.Value) == "" {
			set("due_date", nil)
		} else {
			d, err := c.store.ParseDueDate(patch.DueDate.Value)
			if err != nil {
				return nil, err
			}
			set("due_date", d)
		}
	}
	if patch.FolderID.Set || patch.FolderName.Set {
		folderID, err := c.resolvePatchFolder(ctx, patch)
		if err != nil {
			return nil, err
		}
		set("folder_id", folderID)
	}

	set("updated_at", c.now())
	args = append(args, id, c.owner)

	res, err := c.store.db.ExecContext(ctx, c.store.db.Rebind(`UPDATE tasks SET `+strings.Join(sets, ", ")+`
WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if n == 0 {
		return nil, apperrors.NotFound("No encontrada")
	}

	return c.GetTask(ctx, id)
}

// resolvePatchFolder computes the folder reference a patch asks for.
// An explicit folderId wins over folderName; null on either clears the folder.
func (c *Client) resolvePatchFolder(ctx context.Context, patch Patch) (*string, error) {
	if patch.FolderID.Set {
		if patch.FolderID.Null {
			return nil, nil
		}
		id := patch.FolderID.Value
		return c.resolveFolderRef(ctx, &id, nil)
	}
	if patch.FolderName.Null {
		return nil, nil
	}
	name := patch.FolderName.Value
	return c.resolveFolderRef(ctx, nil, &name)
}

// DeleteTask soft-deletes one owned, live task.
func (c *Client) DeleteTask(ctx context.Context, id string) (result *DeleteResult, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationDelete)
	defer func() { done(err) }()

	tx, err := c.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var title string
	err = tx.GetContext(ctx, &title, tx.Rebind(`SELECT title FROM tasks WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`), id, c.owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("No encontrada")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	now := c.now()
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`),
		now, now, id, c.owner); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}

	return &DeleteResult{DeletedID: id, Title: title}, nil
}

// DeleteTasksBulk soft-deletes every owned, live task in ids. It refuses to
// do anything unless confirm is true.
func (c *Client) DeleteTasksBulk(ctx context.Context, ids []string, confirm bool) (result *BulkDeleteResult, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationBulkDelete)
	defer func() { done(err) }()

	if !confirm {
		return nil, apperrors.ConfirmationRequired("Se requiere confirmación para borrar en masa")
	}

	unique := dedupe(ids)
	result = &BulkDeleteResult{Results: make([]BulkOutcome, 0, len(unique))}
	if len(unique) == 0 {
		return result, nil
	}

	tx, err := c.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := sqlx.In(`SELECT id FROM tasks WHERE owner_id = ? AND deleted_at IS NULL AND id IN (?)`, c.owner, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to build bulk query: %w", err)
	}
	var found []string
	if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}

	if len(found) > 0 {
		now := c.now()
		query, args, err = sqlx.In(`UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE owner_id = ? AND deleted_at IS NULL AND id IN (?)`,
			now, now, c.owner, found)
		if err != nil {
			return nil, fmt.Errorf("failed to build bulk update: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to delete tasks: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to delete tasks: %w", err)
		}
		result.Deleted = int(n)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bulk delete: %w", err)
	}

	deleted := make(map[string]bool, len(found))
	for _, id := range found {
		deleted[id] = true
	}
	for _, id := range unique {
		status := BulkStatusNotFound
		if deleted[id] {
			status = BulkStatusDeleted
		}
		result.Results = append(result.Results, BulkOutcome{ID: id, Status: status})
	}

	return result, nil
}

// dedupe drops empty and repeated ids, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func invalidPriority(p Priority) error {
	return apperrors.Validationf("priority", "Prioridad inválida %q: debe ser low, medium o high", string(p))
}

func invalidCategory(c Category) error {
	return apperrors.Validationf("category", "Categoría inválida %q: debe ser work, personal, shopping, health u other", string(c))
}

// PurgeDeleted permanently removes tasks of every owner that were
// soft-deleted before cutoff.
func (s *Store) PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM tasks WHERE deleted_at IS NOT NULL AND deleted_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge tasks: %w", err)
	}
	return res.RowsAffected()
}
