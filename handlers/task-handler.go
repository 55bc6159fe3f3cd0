package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"taskhub/backend/middleware"
	"taskhub/backend/models"
	"taskhub/backend/services"
)

type TaskHandler struct {
	TaskService  *services.TaskService
	QueryService *services.QueryService
}

func NewTaskHandler(taskService *services.TaskService, queryService *services.QueryService) *TaskHandler {
	return &TaskHandler{TaskService: taskService, QueryService: queryService}
}

type createTaskRequest struct {
	Title      string `json:"title"`
	AssignedTo string `json:"assignedTo"`
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tasks, err := h.QueryService.ListTasks(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (h *TaskHandler) ListTasksByProject(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.IdentityFromContext(r.Context()); !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tasks, err := h.TaskService.ListByProject(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	task, err := h.TaskService.Create(r.Context(), identity, mux.Vars(r)["projectId"], req.Title, req.AssignedTo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"task": task})
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	vars := mux.Vars(r)
	task, err := h.TaskService.Update(r.Context(), identity, vars["projectId"], vars["taskId"], patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	task, err := h.TaskService.Delete(r.Context(), identity, mux.Vars(r)["taskId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Task deleted", "task": task})
}
