package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/instrumentation"
)

// priorityRank ranks low < medium < high, so descending puts urgent tasks first.
const priorityRank = `CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END`

// Search returns live tasks matching filter.
func (c *Client) Search(ctx context.Context, filter SearchFilter) (result *SearchResult, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationSearch)
	defer func() { done(err) }()

	where, args, err := c.buildWhere(filter)
	if err != nil {
		return nil, err
	}
	order, err := orderClause(filter.SortBy, filter.SortOrder)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var matched int
	if err := c.store.db.GetContext(ctx, &matched, c.store.db.Rebind(`SELECT COUNT(*) FROM tasks WHERE `+where), args...); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	items := []Task{}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	if err := c.store.db.SelectContext(ctx, &items, c.store.db.Rebind(query), append(args, limit, offset)...); err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}

	return &SearchResult{Items: items, Total: len(items), Matched: matched}, nil
}

// ListTasks returns every live task, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	res, err := c.Search(ctx, SearchFilter{})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (c *Client) buildWhere(f SearchFilter) (string, []any, error) {
	conds := []string{"owner_id = ?", "deleted_at IS NULL"}
	args := []any{c.owner}

	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		db := c.store.db
		conds = append(conds, "("+db.Lower("title")+` LIKE ? ESCAPE '\' OR `+db.Lower("COALESCE(details, '')")+` LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	// Attribute filters, combined with Logic.
	var attrConds []string
	var attrArgs []any
	if f.Completed != nil {
		attrConds = append(attrConds, "completed = ?")
		attrArgs = append(attrArgs, *f.Completed)
	}
	if f.Priority != nil {
		if !f.Priority.Valid() {
			return "", nil, invalidPriority(*f.Priority)
		}
		attrConds = append(attrConds, "priority = ?")
		attrArgs = append(attrArgs, string(*f.Priority))
	}
	var cats []string
	if f.Category != nil {
		cats = append(cats, string(*f.Category))
	}
	for _, cat := range f.Categories {
		cats = append(cats, string(cat))
	}
	if len(cats) > 0 {
		for _, cat := range cats {
			if !Category(cat).Valid() {
				return "", nil, invalidCategory(Category(cat))
			}
		}
		attrConds = append(attrConds, "category IN ("+placeholders(len(cats))+")")
		for _, cat := range cats {
			attrArgs = append(attrArgs, cat)
		}
	}
	if len(attrConds) > 0 {
		joiner := " AND "
		switch strings.ToLower(f.Logic) {
		case "", LogicAnd:
		case LogicOr:
			joiner = " OR "
		default:
			return "", nil, apperrors.Validationf("logic", "Lógica inválida %q: debe ser and u or", f.Logic)
		}
		conds = append(conds, "("+strings.Join(attrConds, joiner)+")")
		args = append(args, attrArgs...)
	}

	if strings.TrimSpace(f.DueDateFrom) != "" {
		from, err := c.store.ParseDueDate(f.DueDateFrom)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, "due_date >= ?")
		args = append(args, from)
	}
	if strings.TrimSpace(f.DueDateTo) != "" {
		to, err := c.store.ParseDueDate(f.DueDateTo)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, "due_date <= ?")
		args = append(args, to)
	}

	return strings.Join(conds, " AND "), args, nil
}

// orderClause maps the public sort key to SQL. Without a key the newest
// tasks come first; with one the default order is ascending. Null due dates
// and priorities always sort last.
func orderClause(sortBy, sortOrder string) (string, error) {
	if sortBy == "" {
		if sortOrder == "" {
			sortOrder = SortDesc
		}
		sortBy = SortByCreatedAt
	}

	dir := "ASC"
	switch strings.ToLower(sortOrder) {
	case "", SortAsc:
	case SortDesc:
		dir = "DESC"
	default:
		return "", apperrors.Validationf("sortOrder", "Orden inválido %q: debe ser asc o desc", sortOrder)
	}

	switch sortBy {
	case SortByCreatedAt:
		return "created_at " + dir + ", id " + dir, nil
	case SortByDueDate:
		return "CASE WHEN due_date IS NULL THEN 1 ELSE 0 END ASC, due_date " + dir + ", created_at DESC", nil
	case SortByPriority:
		return "CASE WHEN priority IS NULL THEN 1 ELSE 0 END ASC, " + priorityRank + " " + dir + ", created_at DESC", nil
	case SortByTitle:
		return "LOWER(title) " + dir + ", created_at DESC", nil
	default:
		return "", apperrors.Validationf("sortBy", "Campo de orden inválido %q: usa createdAt, dueDate, priority o title", sortBy)
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// escapeLike escapes LIKE wildcards so the query is matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
