package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
	"github.com/akinalp/tms/services"
)

// TaskHandler, görev endpoint'lerini yöneten struct.
type TaskHandler struct {
	taskService services.TaskService
}

// NewTaskHandler, constructor.
func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// Create godoc
// POST /api/v1/task
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.taskService.Create(r.Context(), identity.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Task created successfully",
		"data":    task,
	})
}

// List godoc
// GET /api/v1/task
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListOwn(r.Context(), identity.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{"success": true, "tasks": tasks})
}

// Search godoc
// GET /api/v1/task/search?status=Pending&dueDate=31-12-2026
func (h *TaskHandler) Search(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	tasks, err := h.taskService.Search(r.Context(), identity.ID, q.Get("status"), q.Get("dueDate"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{"success": true, "tasks": tasks})
}

// AllTasks godoc
// GET /api/v1/task/all-tasks
// Sadece Admin; kontrol AdminMiddleware'de yapılır.
func (h *TaskHandler) AllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListAll(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{"success": true, "tasks": tasks})
}

// Update godoc
// PUT /api/v1/task/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.taskService.Update(r.Context(), identity.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Task updated successfully",
		"task":    task,
	})
}

// Delete godoc
// DELETE /api/v1/task/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), identity.ID, r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Task deleted successfully",
	})
}
