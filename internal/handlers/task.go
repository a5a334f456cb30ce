package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdash/internal/cache"
	"github.com/yukikurage/taskdash/internal/constants"
	"github.com/yukikurage/taskdash/internal/dto"
	apierrors "github.com/yukikurage/taskdash/internal/errors"
	"github.com/yukikurage/taskdash/internal/middleware"
	"github.com/yukikurage/taskdash/internal/models"
	"github.com/yukikurage/taskdash/internal/services"
	"github.com/yukikurage/taskdash/internal/tenant"
	"github.com/yukikurage/taskdash/internal/utils"
)

const jsonContentType = "application/json; charset=utf-8"

type TaskHandler struct {
	taskService *services.TaskService
	pages       cache.PageCache
	strictReads bool
}

// NewTaskHandler creates a TaskHandler. With strictReads, page reads that
// hit a store failure answer 503 instead of rendering an empty page.
func NewTaskHandler(taskService *services.TaskService, pages cache.PageCache, strictReads bool) *TaskHandler {
	if pages == nil {
		pages = cache.Noop{}
	}
	return &TaskHandler{
		taskService: taskService,
		pages:       pages,
		strictReads: strictReads,
	}
}

// ListTasks renders one page of the organization's task list
func (h *TaskHandler) ListTasks(c *gin.Context) {
	t, ok := tenant.FromContext(c)
	if !ok {
		apierrors.RespondWithDomainError(c, apierrors.NewAuthenticationError(""))
		return
	}

	params := utils.GetPageParams(c)
	query := strings.TrimSpace(c.Query("query"))
	key := cache.TaskListKey(t.OrganizationID, params.Page, query)

	if body, hit := h.pages.Get(c.Request.Context(), key); hit {
		c.Data(http.StatusOK, jsonContentType, body)
		return
	}
	stamp, stamped := h.pages.Stamp(c.Request.Context(), t.OrganizationID)

	page, err := h.taskService.ListTasks(c.Request.Context(), t, services.ListTasksInput{
		PageIndex: params.PageIndex,
		PageSize:  params.PerPage,
		Query:     query,
	})
	if err != nil {
		if h.strictReads || !apierrors.IsDataAccess(err) {
			respondTaskError(c, err)
			return
		}
		// Degraded render; not cached so the next request retries the store
		logTaskError(c, err).Warn("rendering empty task list after read failure")
		c.JSON(http.StatusOK, dto.ToTaskListPageDTO(nil, 0, params, query))
		return
	}

	h.render(c, key, stamp, stamped, dto.ToTaskListPageDTO(page.Tasks, page.Count, params, query))
}

// GetTask renders a task detail page. Unknown, foreign or malformed ids
// send the caller back to the dashboard.
func (h *TaskHandler) GetTask(c *gin.Context) {
	t, ok := tenant.FromContext(c)
	if !ok {
		apierrors.RespondWithDomainError(c, apierrors.NewAuthenticationError(""))
		return
	}

	taskID, err := strconv.ParseUint(c.Param(middleware.TaskParam), 10, 64)
	if err != nil || taskID == 0 {
		c.Redirect(http.StatusFound, constants.DashboardRoot)
		return
	}

	key := cache.TaskKey(t.OrganizationID, taskID)
	if body, hit := h.pages.Get(c.Request.Context(), key); hit {
		c.Data(http.StatusOK, jsonContentType, body)
		return
	}
	stamp, stamped := h.pages.Stamp(c.Request.Context(), t.OrganizationID)

	task, err := h.taskService.GetTask(c.Request.Context(), t, taskID)
	if err != nil {
		if apierrors.IsDataAccess(err) {
			if h.strictReads {
				respondTaskError(c, err)
				return
			}
			logTaskError(c, err).Warn("redirecting after task read failure")
		}
		c.Redirect(http.StatusFound, constants.DashboardRoot)
		return
	}

	h.render(c, key, stamp, stamped, dto.ToTaskDTO(*task))
}

type createTaskRequest struct {
	Name        string  `json:"name" form:"name"`
	Description *string `json:"description" form:"description"`
	DueDate     string  `json:"due_date" form:"due_date"`
	Done        bool    `json:"done" form:"done"`
}

// CreateTask creates a task in the active organization and redirects to
// the organization's task list
func (h *TaskHandler) CreateTask(c *gin.Context) {
	t, ok := tenant.FromContext(c)
	if !ok {
		apierrors.RespondWithDomainError(c, apierrors.NewAuthenticationError(""))
		return
	}

	var req createTaskRequest
	if err := c.ShouldBind(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	if _, err := h.taskService.CreateTask(c.Request.Context(), t, services.CreateTaskInput{
		Name:        req.Name,
		Description: req.Description,
		DueDate:     dueDate,
		Done:        req.Done,
	}); err != nil {
		respondTaskError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, taskListPath(t.OrganizationID))
}

type updateTaskRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	ClearDescription bool    `json:"clear_description"`
	DueDate          *string `json:"due_date"`
	Done             *bool   `json:"done"`
}

// UpdateTask partially updates a task of the active organization
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	t, taskID, ok := taskActionContext(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Name:             req.Name,
		Description:      req.Description,
		ClearDescription: req.ClearDescription,
		Done:             req.Done,
	}
	if req.DueDate != nil {
		dueDate, err := parseDueDate(*req.DueDate)
		if err != nil {
			respondTaskError(c, err)
			return
		}
		input.DueDate = &dueDate
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), t, taskID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task of the active organization
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	t, taskID, ok := taskActionContext(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), t, taskID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GenerateTasks drafts tasks from free text using AI
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	t, ok := tenant.FromContext(c)
	if !ok {
		apierrors.RespondWithDomainError(c, apierrors.NewAuthenticationError(""))
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.taskService.GenerateTasks(c.Request.Context(), t, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAIServiceNotConfigured):
			apierrors.ServiceUnavailable(c, "AI service is not available")
		case errors.Is(err, services.ErrAINoTasksGenerated), errors.Is(err, services.ErrAINoValidTasks):
			apierrors.BadRequest(c, err.Error())
		default:
			respondTaskError(c, err)
		}
		return
	}

	items := make([]dto.GeneratedTaskDTO, len(drafts))
	for i, draft := range drafts {
		items[i] = dto.GeneratedTaskDTO{
			Name:        draft.Name,
			Description: draft.Description,
			DueDate:     draft.DueDate,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": items,
		"count": len(items),
	})
}

// render writes v and stores the body in the page cache when a stamp was
// taken before the store read
func (h *TaskHandler) render(c *gin.Context, key string, stamp cache.Stamp, stamped bool, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logTaskError(c, err).Error("failed to encode page")
		apierrors.InternalError(c, "")
		return
	}

	if stamped {
		h.pages.Set(c.Request.Context(), key, stamp, body)
	}
	c.Data(http.StatusOK, jsonContentType, body)
}

func taskActionContext(c *gin.Context) (tenant.Tenant, uint64, bool) {
	t, ok := tenant.FromContext(c)
	if !ok {
		apierrors.RespondWithDomainError(c, apierrors.NewAuthenticationError(""))
		return tenant.Tenant{}, 0, false
	}

	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.RespondWithDomainError(c, apierrors.NewValidationError(middleware.TaskParam, "is required"))
		return tenant.Tenant{}, 0, false
	}

	return t, taskID, true
}

func taskListPath(organizationID uint64) string {
	return fmt.Sprintf("%s/%d/tasks", constants.DashboardRoot, organizationID)
}

// parseDueDate accepts RFC3339 timestamps and plain dates. Empty input is
// returned as the zero time so the service reports it as missing.
func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	if day, err := time.Parse(time.DateOnly, raw); err == nil {
		return day, nil
	}
	return time.Time{}, apierrors.NewValidationError(models.TaskColumnDueDate, "must be a date (YYYY-MM-DD) or RFC3339 timestamp")
}

func respondTaskError(c *gin.Context, err error) {
	if apierrors.IsDataAccess(err) || apierrors.StatusFor(err) == http.StatusInternalServerError {
		logTaskError(c, err).Error("task request failed")
	}
	apierrors.RespondWithDomainError(c, err)
}

func logTaskError(c *gin.Context, err error) *log.Entry {
	entry := log.WithError(err).WithField("path", c.FullPath())
	if requestID := middleware.GetRequestID(c); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	if t, ok := tenant.FromContext(c); ok {
		entry = entry.WithField("organization_id", t.OrganizationID)
	}
	return entry
}
