package tasks_tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/tasks"
)

// decodeArgs strictly decodes a tool's JSON arguments into dst. Empty input
// and null are treated as an empty object.
func decodeArgs(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Validationf("", "Argumentos inválidos: %s", describeDecodeError(err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperrors.Validation("", "Argumentos inválidos: contenido adicional tras el objeto JSON")
	}
	return nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		want := jsonTypeName(typeErr.Type.Kind().String())
		if typeErr.Field != "" {
			return fmt.Sprintf("el campo %q debe ser de tipo %s", typeErr.Field, want)
		}
		return fmt.Sprintf("se recibió %s donde se esperaba %s", typeErr.Value, want)
	}
	msg := err.Error()
	if field, ok := strings.CutPrefix(msg, "json: unknown field "); ok {
		return "campo desconocido " + field
	}
	return msg
}

func jsonTypeName(kind string) string {
	switch kind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "slice", "array":
		return "array"
	case "struct", "map", "ptr":
		return "object"
	default:
		return "number"
	}
}

// oneOf checks an optional enumerated argument.
func oneOf(field, value string, allowed []string) error {
	if value == "" || slices.Contains(allowed, value) {
		return nil
	}
	return apperrors.Validationf(field, "Valor inválido para %s: %q (permitidos: %s)", field, value, strings.Join(allowed, ", "))
}

func checkPriority(field string, p *tasks.Priority) error {
	if p == nil {
		return nil
	}
	return oneOf(field, string(*p), tasks.Priorities)
}

func checkCategory(field string, c *tasks.Category) error {
	if c == nil {
		return nil
	}
	return oneOf(field, string(*c), tasks.Categories)
}

// IDList accepts either a single id or an array of ids. Blank entries are
// rejected.
type IDList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *IDList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return apperrors.Validation("taskIds", "taskIds no puede estar vacío")
		}
		*l = IDList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return apperrors.Validation("taskIds", "taskIds debe ser un string o un array de strings")
	}
	for i, id := range many {
		if strings.TrimSpace(id) == "" {
			return apperrors.Validationf("taskIds", "taskIds[%d] no puede estar vacío", i)
		}
	}
	*l = many
	return nil
}

type createTaskArgs struct {
	Title      string          `json:"title"`
	Priority   *tasks.Priority `json:"priority"`
	DueDate    *string         `json:"dueDate"`
	Category   *tasks.Category `json:"category"`
	Details    *string         `json:"details"`
	FolderID   *string         `json:"folderId"`
	FolderName *string         `json:"folderName"`
}

func (a createTaskArgs) validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return apperrors.Validation("title", "El título es requerido")
	}
	if err := checkPriority("priority", a.Priority); err != nil {
		return err
	}
	return checkCategory("category", a.Category)
}

func (a createTaskArgs) input() tasks.CreateInput {
	in := tasks.CreateInput{
		Title:      a.Title,
		Priority:   a.Priority,
		Category:   a.Category,
		Details:    a.Details,
		FolderID:   a.FolderID,
		FolderName: a.FolderName,
	}
	if a.DueDate != nil {
		in.DueDate = *a.DueDate
	}
	return in
}

type updateTaskArgs struct {
	TaskID string `json:"taskId"`
	tasks.Patch
}

func (a updateTaskArgs) validate() error {
	if strings.TrimSpace(a.TaskID) == "" {
		return apperrors.Validation("taskId", "taskId es requerido")
	}
	if a.Priority.Set && !a.Priority.Null {
		if err := checkPriority("priority", &a.Priority.Value); err != nil {
			return err
		}
	}
	if a.Category.Set && !a.Category.Null {
		if err := checkCategory("category", &a.Category.Value); err != nil {
			return err
		}
	}
	return nil
}

type deleteTaskArgs struct {
	TaskID string `json:"taskId"`
	// Accepted for compatibility with older prompts; a single delete never
	// requires confirmation.
	Confirm *bool `json:"confirm"`
}

func (a deleteTaskArgs) validate() error {
	if strings.TrimSpace(a.TaskID) == "" {
		return apperrors.Validation("taskId", "taskId es requerido")
	}
	return nil
}

type deleteTasksBulkArgs struct {
	TaskIDs IDList `json:"taskIds"`
	Confirm bool   `json:"confirm"`
}

func (a deleteTasksBulkArgs) validate() error {
	if len(a.TaskIDs) == 0 {
		return apperrors.Validation("taskIds", "taskIds es requerido")
	}
	return nil
}

type searchTasksArgs struct {
	Query       string           `json:"query"`
	Completed   *bool            `json:"completed"`
	Priority    *tasks.Priority  `json:"priority"`
	Category    *tasks.Category  `json:"category"`
	Categories  []tasks.Category `json:"categories"`
	DueDateFrom string           `json:"dueDateFrom"`
	DueDateTo   string           `json:"dueDateTo"`
	SortBy      string           `json:"sortBy"`
	SortOrder   string           `json:"sortOrder"`
	Logic       string           `json:"logic"`
	Limit       *int             `json:"limit"`
	Offset      *int             `json:"offset"`
}

var (
	sortKeys   = []string{tasks.SortByCreatedAt, tasks.SortByDueDate, tasks.SortByPriority, tasks.SortByTitle}
	sortOrders = []string{tasks.SortAsc, tasks.SortDesc}
	logics     = []string{tasks.LogicAnd, tasks.LogicOr}
)

func (a searchTasksArgs) validate() error {
	if err := checkPriority("priority", a.Priority); err != nil {
		return err
	}
	if err := checkCategory("category", a.Category); err != nil {
		return err
	}
	for i := range a.Categories {
		if err := checkCategory("categories", &a.Categories[i]); err != nil {
			return err
		}
	}
	if err := oneOf("sortBy", a.SortBy, sortKeys); err != nil {
		return err
	}
	if err := oneOf("sortOrder", a.SortOrder, sortOrders); err != nil {
		return err
	}
	if err := oneOf("logic", a.Logic, logics); err != nil {
		return err
	}
	if a.Limit != nil && *a.Limit < 0 {
		return apperrors.Validation("limit", "limit no puede ser negativo")
	}
	if a.Offset != nil && *a.Offset < 0 {
		return apperrors.Validation("offset", "offset no puede ser negativo")
	}
	return nil
}

func (a searchTasksArgs) filter() tasks.SearchFilter {
	f := tasks.SearchFilter{
		Query:       a.Query,
		Completed:   a.Completed,
		Priority:    a.Priority,
		Category:    a.Category,
		Categories:  a.Categories,
		DueDateFrom: a.DueDateFrom,
		DueDateTo:   a.DueDateTo,
		SortBy:      a.SortBy,
		SortOrder:   a.SortOrder,
		Logic:       a.Logic,
	}
	if a.Limit != nil {
		f.Limit = *a.Limit
	}
	if a.Offset != nil {
		f.Offset = *a.Offset
	}
	return f
}

type taskStatsArgs struct {
	Period  string `json:"period"`
	GroupBy string `json:"groupBy"`
}

func (a taskStatsArgs) validate() error {
	if err := oneOf("period", a.Period, tasks.Periods); err != nil {
		return err
	}
	return oneOf("groupBy", a.GroupBy, tasks.GroupBys)
}

type listFoldersArgs struct{}
