package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
	"github.com/teemow/todoagent/internal/tools/common"
)

func (h *Handler) taskClient(w http.ResponseWriter, r *http.Request) (*tasks.Client, bool) {
	c, err := common.TaskClient(r.Context(), h.sc)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return c, true
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	c, ok := h.taskClient(w, r)
	if !ok {
		return
	}
	items, err := c.ListTasks(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []tasks.Task{}
	}
	server.WriteJSON(w, http.StatusOK, items)
}

type createTaskRequest struct {
	Title    json.RawMessage `json:"title"`
	Priority *tasks.Priority `json:"priority"`
	Category *tasks.Category `json:"category"`
	Details  *string         `json:"details"`
	DueDate  string          `json:"dueDate"`
	FolderID *string         `json:"folderId"`
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	c, ok := h.taskClient(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	var title string
	if err := json.Unmarshal(req.Title, &title); err != nil || strings.TrimSpace(title) == "" {
		h.writeError(w, apperrors.Validation("title", "Título requerido"))
		return
	}

	res, err := c.CreateTask(r.Context(), tasks.CreateInput{
		Title:    title,
		Priority: req.Priority,
		Category: req.Category,
		Details:  req.Details,
		DueDate:  req.DueDate,
		FolderID: req.FolderID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, res.Task)
}

type updateTaskRequest struct {
	ID        string  `json:"id"`
	Completed *bool   `json:"completed"`
	Title     *string `json:"title"`
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	c, ok := h.taskClient(w, r)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ID == "" {
		h.writeError(w, apperrors.Validation("id", "ID requerido"))
		return
	}

	var patch tasks.Patch
	if req.Completed != nil {
		patch.Completed = tasks.Some(*req.Completed)
	}
	if req.Title != nil {
		patch.Title = tasks.Some(*req.Title)
	}
	if patch.IsEmpty() {
		h.writeError(w, apperrors.Validation("", "Nada para actualizar"))
		return
	}

	task, err := c.UpdateTask(r.Context(), req.ID, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	c, ok := h.taskClient(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperrors.Validation("id", "ID requerido"))
		return
	}
	if _, err := c.DeleteTask(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleListFolders(w http.ResponseWriter, r *http.Request) {
	c, ok := h.taskClient(w, r)
	if !ok {
		return
	}
	folders, err := c.ListFolders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if folders == nil {
		folders = []tasks.Folder{}
	}
	server.WriteJSON(w, http.StatusOK, folders)
}

type createFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

func (h *Handler) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	c, ok := h.taskClient(w, r)
	if !ok {
		return
	}
	var req createFolderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	folder, err := c.CreateFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, folder)
}

type updateFolderRequest struct {
	ID string `json:"id"`
	tasks.FolderPatch
}

func (h *Handler) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	c, ok := h.taskClient(w, r)
	if !ok {
		return
	}
	var req updateFolderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ID == "" {
		h.writeError(w, apperrors.Validation("id", "ID requerido"))
		return
	}
	if !req.Name.Set && !req.ParentID.Set {
		h.writeError(w, apperrors.Validation("", "Nada para actualizar"))
		return
	}
	folder, err := c.UpdateFolder(r.Context(), req.ID, req.FolderPatch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, folder)
}

func (h *Handler) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	c, ok := h.taskClient(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperrors.Validation("id", "ID requerido"))
		return
	}
	if err := c.DeleteFolder(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
