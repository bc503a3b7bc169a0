package tasks_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/calendar"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
	"github.com/teemow/todoagent/internal/tools/common"
)

// Tool names
const (
	CreateTask      = "createTask"
	UpdateTask      = "updateTask"
	DeleteTask      = "deleteTask"
	DeleteTasksBulk = "deleteTasksBulk"
	SearchTasks     = "searchTasks"
	GetTaskStats    = "getTaskStats"
	ListFolders     = "listFolders"
)

// DefaultCalendarWait bounds how long createTask waits for the calendar
// insertion before answering without it.
const DefaultCalendarWait = 3 * time.Second

// handlerFunc runs one tool against the caller's task client.
type handlerFunc func(ctx context.Context, c *tasks.Client, args json.RawMessage) (any, error)

type entry struct {
	tool mcp.Tool
	call common.CallFunc
}

// Registry is the dispatch table mapping tool names to their definitions
// and implementations.
type Registry struct {
	sc           *server.ServerContext
	transport    string
	calendarWait time.Duration

	order   []string
	entries map[string]entry
}

// Option configures a Registry
type Option func(*Registry)

// WithCalendarWait overrides DefaultCalendarWait. Zero answers immediately.
func WithCalendarWait(d time.Duration) Option {
	return func(r *Registry) { r.calendarWait = d }
}

// NewRegistry builds the tool table. transport labels metrics and audit
// records (instrumentation.TransportAgent or TransportMCP).
func NewRegistry(sc *server.ServerContext, transport string, opts ...Option) *Registry {
	r := &Registry{
		sc:           sc,
		transport:    transport,
		calendarWait: DefaultCalendarWait,
		entries:      make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.add(createTaskTool(), r.createTask)
	r.add(updateTaskTool(), updateTask)
	r.add(deleteTaskTool(), deleteTask)
	r.add(deleteTasksBulkTool(), deleteTasksBulk)
	r.add(searchTasksTool(), searchTasks)
	r.add(getTaskStatsTool(), getTaskStats)
	r.add(listFoldersTool(), listFolders)
	return r
}

func (r *Registry) add(tool mcp.Tool, fn handlerFunc) {
	sc := r.sc
	call := common.Instrumented(sc, r.transport, tool.Name, func(ctx context.Context, args json.RawMessage) (any, error) {
		client, err := common.TaskClient(ctx, sc)
		if err != nil {
			return nil, err
		}
		return fn(ctx, client, args)
	})
	r.order = append(r.order, tool.Name)
	r.entries[tool.Name] = entry{tool: tool, call: call}
}

// Tools returns the tool definitions in registration order.
func (r *Registry) Tools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].tool)
	}
	return out
}

// Call executes a tool and returns its raw result.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, apperrors.New(apperrors.KindValidation, "Tool desconocida: "+name)
	}
	return e.call(ctx, args)
}

// Dispatch executes a tool and encodes the outcome as the JSON string the
// model receives. Failures of any kind become {"error": msg}.
func (r *Registry) Dispatch(ctx context.Context, name, arguments string) string {
	result, err := r.Call(ctx, name, json.RawMessage(arguments))
	if err != nil {
		if apperrors.KindOf(err) == "" {
			r.sc.Logger().Error("tool failed", logging.Tool(name), logging.Err(err))
		}
		return errorJSON(apperrors.Message(err))
	}

	data, err := json.Marshal(result)
	if err != nil {
		r.sc.Logger().Error("failed to encode tool result", logging.Tool(name), logging.Err(err))
		return errorJSON("Error interno")
	}
	return string(data)
}

func errorJSON(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}

// createdTask is the createTask result: the task plus, when the task has a
// due date, the outcome of the calendar insertion.
type createdTask struct {
	*tasks.Task
	Calendar *calendar.Result `json:"calendar,omitempty"`
}

func (r *Registry) createTask(ctx context.Context, c *tasks.Client, raw json.RawMessage) (any, error) {
	var args createTaskArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	res, err := c.CreateTask(ctx, args.input())
	if err != nil {
		return nil, err
	}

	out := createdTask{Task: res.Task}
	if res.Calendar == nil {
		return out, nil
	}

	timer := time.NewTimer(r.calendarWait)
	defer timer.Stop()
	select {
	case result, ok := <-res.Calendar:
		if ok {
			out.Calendar = &result
		}
	case <-timer.C:
		r.sc.Logger().Debug("calendar insertion still pending", logging.TaskID(res.Task.ID))
	case <-ctx.Done():
	}
	return out, nil
}

func updateTask(ctx context.Context, c *tasks.Client, raw json.RawMessage) (any, error) {
	var args updateTaskArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	return c.UpdateTask(ctx, args.TaskID, args.Patch)
}

func deleteTask(ctx context.Context, c *tasks.Client, raw json.RawMessage) (any, error) {
	var args deleteTaskArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	return c.DeleteTask(ctx, args.TaskID)
}

func deleteTasksBulk(ctx context.Context, c *tasks.Client, raw json.RawMessage) (any, error) {
	var args deleteTasksBulkArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	return c.DeleteTasksBulk(ctx, args.TaskIDs, args.Confirm)
}

func searchTasks(ctx context.Context, c *tasks.Client, raw json.RawMessage) (any, error) {
	var args searchTasksArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	return c.Search(ctx, args.filter())
}

func getTaskStats(ctx context.Context, c *tasks.Client, raw json.RawMessage) (any, error) {
	var args taskStatsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	return c.GetStats(ctx, args.Period, args.GroupBy)
}

func listFolders(ctx context.Context, c *tasks.Client, raw json.RawMessage) (any, error) {
	var args listFoldersArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	folders, err := c.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return map[string]any{"folders": folders}, nil
}
