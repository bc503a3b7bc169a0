package tasks

import (
	"encoding/json"
	"time"
)

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Category of a task
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryShopping Category = "shopping"
	CategoryHealth   Category = "health"
	CategoryOther    Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryShopping, CategoryHealth, CategoryOther:
		return true
	}
	return false
}

// Enumerations as plain strings, used for tool schemas.
var (
	Priorities = []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh)}
	Categories = []string{
		string(CategoryWork), string(CategoryPersonal), string(CategoryShopping),
		string(CategoryHealth), string(CategoryOther),
	}
)

// Task is a to-do item owned by a single user
type Task struct {
	ID        string     `db:"id" json:"id"`
	OwnerID   string     `db:"owner_id" json:"-"`
	Title     string     `db:"title" json:"title"`
	Completed bool       `db:"completed" json:"completed"`
	Priority  *Priority  `db:"priority" json:"priority"`
	Category  *Category  `db:"category" json:"category"`
	Details   *string    `db:"details" json:"details"`
	DueDate   *time.Time `db:"due_date" json:"dueDate"`
	FolderID  *string    `db:"folder_id" json:"folderId"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// Folder groups tasks; folders may nest through ParentID
type Folder struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	ParentID  *string   `db:"parent_id" json:"parentId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Optional distinguishes an absent JSON field from an explicit null.
// Set is true when the key was present; Null is true when its value was null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present Optional holding null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON records presence and nullness.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON writes null for absent or null values.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// CreateInput holds the fields accepted when creating a task
type CreateInput struct {
	Title      string
	Priority   *Priority
	Category   *Category
	Details    *string
	DueDate    string // parsed with ParseDueDate; empty means no due date
	FolderID   *string
	FolderName *string
}

// Patch is a partial task update. Only fields with Set=true are applied.
type Patch struct {
	Title      Optional[string]   `json:"title"`
	Completed  Optional[bool]     `json:"completed"`
	Priority   Optional[Priority] `json:"priority"`
	Category   Optional[Category] `json:"category"`
	Details    Optional[string]   `json:"details"`
	DueDate    Optional[string]   `json:"dueDate"`
	FolderID   Optional[string]   `json:"folderId"`
	FolderName Optional[string]   `json:"folderName"`
}

// IsEmpty reports whether no field is set.
func (p Patch) IsEmpty() bool {
	return !p.Title.Set && !p.Completed.Set && !p.Priority.Set && !p.Category.Set &&
		!p.Details.Set && !p.DueDate.Set && !p.FolderID.Set && !p.FolderName.Set
}

// DeleteResult reports a single soft delete
type DeleteResult struct {
	DeletedID string `json:"deletedId"`
	Title     string `json:"title"`
}

// Per-id bulk delete outcomes
const (
	BulkStatusDeleted  = "deleted"
	BulkStatusNotFound = "not_found"
)

// BulkOutcome is the outcome for one requested id
type BulkOutcome struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// BulkDeleteResult reports a bulk soft delete
type BulkDeleteResult struct {
	Deleted int           `json:"deleted"`
	Results []BulkOutcome `json:"results"`
}

// Sort keys accepted by Search
const (
	SortByCreatedAt = "createdAt"
	SortByDueDate   = "dueDate"
	SortByPriority  = "priority"
	SortByTitle     = "title"
)

// Sort orders accepted by Search
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Filter combination modes
const (
	LogicAnd = "and"
	LogicOr  = "or"
)

// DefaultSearchLimit caps a search without an explicit limit.
const DefaultSearchLimit = 1000

// SearchFilter selects, orders and windows tasks
type SearchFilter struct {
	Query       string
	Completed   *bool
	Priority    *Priority
	Category    *Category
	Categories  []Category
	DueDateFrom string
	DueDateTo   string
	SortBy      string
	SortOrder   string
	Limit       int
	Offset      int
	// Logic combines the completed/priority/category filters. The text query
	// and due-date range are always required.
	Logic string
}

// SearchResult holds one page of matches. Total is the number of items in the
// page; Matched counts every row that satisfied the filters.
type SearchResult struct {
	Items   []Task `json:"items"`
	Total   int    `json:"total"`
	Matched int    `json:"matched"`
}
