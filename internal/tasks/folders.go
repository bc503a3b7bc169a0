package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/instrumentation"
)

// Folder names that mean "no folder" when resolving by name.
var noFolderNames = map[string]bool{
	"sin carpeta": true,
	"ninguna":     true,
	"none":        true,
	"no folder":   true,
	"todas":       true,
	"all":         true,
}

const folderColumns = `id, owner_id, name, parent_id, created_at`

// ListFolders returns every folder of the owner ordered by name.
func (c *Client) ListFolders(ctx context.Context) (folders []Folder, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationList)
	defer func() { done(err) }()

	folders = []Folder{}
	err = c.store.db.SelectContext(ctx, &folders, c.store.db.Rebind(`SELECT `+folderColumns+`
FROM folders WHERE owner_id = ? ORDER BY LOWER(name) ASC, created_at ASC`), c.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// GetFolder returns one owned folder.
func (c *Client) GetFolder(ctx context.Context, id string) (*Folder, error) {
	var f Folder
	err := c.store.db.GetContext(ctx, &f, c.store.db.Rebind(`SELECT `+folderColumns+`
FROM folders WHERE id = ? AND owner_id = ?`), id, c.owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Carpeta no encontrada")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return &f, nil
}

// CreateFolder creates a folder, optionally nested under parentID.
func (c *Client) CreateFolder(ctx context.Context, name string, parentID *string) (folder *Folder, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationCreate)
	defer func() { done(err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name", "El nombre es requerido")
	}
	if parentID != nil {
		if _, err := c.GetFolder(ctx, *parentID); err != nil {
			return nil, err
		}
	}

	folder = &Folder{
		ID:        uuid.NewString(),
		OwnerID:   c.owner,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: c.now(),
	}
	_, err = c.store.db.ExecContext(ctx, c.store.db.Rebind(`INSERT INTO folders (id, owner_id, name, parent_id, created_at)
VALUES (?, ?, ?, ?, ?)`), folder.ID, folder.OwnerID, folder.Name, folder.ParentID, folder.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	return folder, nil
}

// FolderPatch is a partial folder update
type FolderPatch struct {
	Name     Optional[string] `json:"name"`
	ParentID Optional[string] `json:"parentId"`
}

// UpdateFolder renames or moves a folder. Moving a folder beneath itself or
// one of its descendants is rejected.
func (c *Client) UpdateFolder(ctx context.Context, id string, patch FolderPatch) (folder *Folder, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationUpdate)
	defer func() { done(err) }()

	if !patch.Name.Set && !patch.ParentID.Set {
		return nil, apperrors.Validation("", "Sin cambios")
	}
	if _, err := c.GetFolder(ctx, id); err != nil {
		return nil, err
	}

	var sets []string
	var args []any
	if patch.Name.Set {
		name := strings.TrimSpace(patch.Name.Value)
		if patch.Name.Null || name == "" {
			return nil, apperrors.Validation("name", "El nombre es requerido")
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if patch.ParentID.Set {
		if patch.ParentID.Null {
			sets = append(sets, "parent_id = ?")
			args = append(args, nil)
		} else {
			if err := c.checkParent(ctx, id, patch.ParentID.Value); err != nil {
				return nil, err
			}
			sets = append(sets, "parent_id = ?")
			args = append(args, patch.ParentID.Value)
		}
	}
	args = append(args, id, c.owner)

	_, err = c.store.db.ExecContext(ctx, c.store.db.Rebind(`UPDATE folders SET `+strings.Join(sets, ", ")+` WHERE id = ? AND owner_id = ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update folder: %w", err)
	}
	return c.GetFolder(ctx, id)
}

// checkParent verifies parentID exists and is not id or one of its descendants.
func (c *Client) checkParent(ctx context.Context, id, parentID string) error {
	seen := map[string]bool{}
	for cur := parentID; ; {
		if cur == id {
			return apperrors.Validation("parentId", "Una carpeta no puede contenerse a sí misma")
		}
		if seen[cur] {
			return apperrors.Validation("parentId", "Jerarquía de carpetas inválida")
		}
		seen[cur] = true

		f, err := c.GetFolder(ctx, cur)
		if err != nil {
			return err
		}
		if f.ParentID == nil {
			return nil
		}
		cur = *f.ParentID
	}
}

// DeleteFolder removes a folder. Its tasks move to no folder and its child
// folders move up to the deleted folder's parent.
func (c *Client) DeleteFolder(ctx context.Context, id string) (err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationDelete)
	defer func() { done(err) }()

	tx, err := c.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var parentID *string
	err = tx.GetContext(ctx, &parentID, tx.Rebind(`SELECT parent_id FROM folders WHERE id = ? AND owner_id = ?`), id, c.owner)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("Carpeta no encontrada")
	}
	if err != nil {
		return fmt.Errorf("failed to find folder: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE tasks SET folder_id = NULL, updated_at = ? WHERE folder_id = ? AND owner_id = ?`),
		c.now(), id, c.owner); err != nil {
		return fmt.Errorf("failed to detach tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE folders SET parent_id = ? WHERE parent_id = ? AND owner_id = ?`),
		parentID, id, c.owner); err != nil {
		return fmt.Errorf("failed to reparent folders: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM folders WHERE id = ? AND owner_id = ?`), id, c.owner); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit folder delete: %w", err)
	}
	return nil
}

// resolveFolderRef turns an explicit folder id or a folder name into a folder
// id owned by this client. The id takes precedence. A nil result means no folder.
func (c *Client) resolveFolderRef(ctx context.Context, folderID, folderName *string) (*string, error) {
	if folderID != nil && strings.TrimSpace(*folderID) != "" {
		f, err := c.GetFolder(ctx, strings.TrimSpace(*folderID))
		if err != nil {
			return nil, err
		}
		return &f.ID, nil
	}
	if folderName == nil {
		return nil, nil
	}
	return c.ResolveFolderName(ctx, *folderName)
}

func folderKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ResolveFolderName finds a folder by name: an exact case-insensitive match
// first, then a prefix match. Names such as "ninguna" or "none" resolve to no
// folder.
func (c *Client) ResolveFolderName(ctx context.Context, name string) (*string, error) {
	needle := folderKey(name)
	if needle == "" || noFolderNames[needle] {
		return nil, nil
	}

	folders, err := c.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		if folderKey(f.Name) == needle {
			return &f.ID, nil
		}
	}
	for _, f := range folders {
		if strings.HasPrefix(folderKey(f.Name), needle) {
			return &f.ID, nil
		}
	}
	return nil, apperrors.NotFound("No se encontró la carpeta indicada por nombre")
}
