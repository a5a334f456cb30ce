package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdash/internal/cache"
	"github.com/yukikurage/taskdash/internal/constants"
	apierrors "github.com/yukikurage/taskdash/internal/errors"
	"github.com/yukikurage/taskdash/internal/models"
	"github.com/yukikurage/taskdash/internal/repository"
	"github.com/yukikurage/taskdash/internal/tenant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const tracerName = "github.com/yukikurage/taskdash/internal/services"

const resourceTask = "task"

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo    repository.TaskRepository
	invalidator cache.Invalidator
	aiService   *AIService
	tracer      trace.Tracer
}

// NewTaskService creates a new TaskService. A nil invalidator disables
// cache invalidation; a nil aiService disables task generation.
func NewTaskService(taskRepo repository.TaskRepository, invalidator cache.Invalidator, aiService *AIService) *TaskService {
	if invalidator == nil {
		invalidator = cache.Noop{}
	}
	return &TaskService{
		taskRepo:    taskRepo,
		invalidator: invalidator,
		aiService:   aiService,
		tracer:      otel.Tracer(tracerName),
	}
}

// ListTasksInput selects one zero-based page of an organization's tasks
type ListTasksInput struct {
	PageIndex int
	PageSize  int
	Query     string
}

// TaskPage is one window of tasks plus the total number of matches
type TaskPage struct {
	Tasks []models.Task
	Count int64
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Name        string
	Description *string
	DueDate     time.Time
	Done        bool
}

// UpdateTaskInput represents a partial update; nil fields are left unchanged
type UpdateTaskInput struct {
	Name             *string
	Description      *string
	ClearDescription bool
	DueDate          *time.Time
	Done             *bool
}

// IsEmpty reports whether the input changes nothing
func (in UpdateTaskInput) IsEmpty() bool {
	return in.Name == nil && in.Description == nil && !in.ClearDescription && in.DueDate == nil && in.Done == nil
}

// ListTasks returns one page of the tenant's tasks matching the query
func (s *TaskService) ListTasks(ctx context.Context, t tenant.Tenant, input ListTasksInput) (page *TaskPage, err error) {
	ctx, span := s.startSpan(ctx, "tasks.list", t,
		attribute.Int("page.index", input.PageIndex),
		attribute.Int("page.size", input.PageSize),
		attribute.Bool("query.present", strings.TrimSpace(input.Query) != ""),
	)
	defer func() { endSpan(span, err) }()

	if input.PageIndex < 0 {
		return nil, apierrors.NewValidationError("page", "must be at least 1")
	}
	if input.PageSize <= 0 {
		return nil, apierrors.NewValidationError("per_page", "must be greater than zero")
	}

	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{
		OrganizationID: t.OrganizationID,
		Query:          strings.TrimSpace(input.Query),
		PageIndex:      input.PageIndex,
		PageSize:       input.PageSize,
	})
	if err != nil {
		return nil, apierrors.NewDataAccessError("list tasks", err)
	}

	span.SetAttributes(attribute.Int64("tasks.count", total))
	return &TaskPage{Tasks: tasks, Count: total}, nil
}

// GetTask returns a task owned by the tenant's organization
func (s *TaskService) GetTask(ctx context.Context, t tenant.Tenant, taskID uint64) (task *models.Task, err error) {
	ctx, span := s.startSpan(ctx, "tasks.get", t, attribute.Int64("task.id", int64(taskID)))
	defer func() { endSpan(span, err) }()

	return s.findTask(ctx, t, taskID, "get task")
}

// CreateTask validates and inserts a task into the tenant's organization
func (s *TaskService) CreateTask(ctx context.Context, t tenant.Tenant, input CreateTaskInput) (task *models.Task, err error) {
	ctx, span := s.startSpan(ctx, "tasks.create", t)
	defer func() { endSpan(span, err) }()

	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if input.DueDate.IsZero() {
		return nil, apierrors.NewValidationError("due_date", "is required")
	}

	task = &models.Task{
		Name:           name,
		Description:    normalizeDescription(input.Description),
		DueDate:        input.DueDate.UTC(),
		Done:           input.Done,
		OrganizationID: t.OrganizationID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, apierrors.NewDataAccessError("create task", err)
	}
	span.SetAttributes(attribute.Int64("task.id", int64(task.ID)))

	s.invalidateList(ctx, t.OrganizationID)
	return task, nil
}

// UpdateTask applies a partial update to a task owned by the tenant
func (s *TaskService) UpdateTask(ctx context.Context, t tenant.Tenant, taskID uint64, input UpdateTaskInput) (task *models.Task, err error) {
	ctx, span := s.startSpan(ctx, "tasks.update", t, attribute.Int64("task.id", int64(taskID)))
	defer func() { endSpan(span, err) }()

	fields, err := updateFields(input)
	if err != nil {
		return nil, err
	}

	if _, err := s.findTask(ctx, t, taskID, "update task"); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, t.OrganizationID, taskID, fields); err != nil {
		return nil, apierrors.NewDataAccessError("update task", err)
	}

	s.invalidateList(ctx, t.OrganizationID)
	s.invalidateTask(ctx, t.OrganizationID, taskID)

	return s.findTask(ctx, t, taskID, "reload task")
}

// DeleteTask permanently removes a task owned by the tenant. Tasks of other
// organizations are reported as not found and left untouched.
func (s *TaskService) DeleteTask(ctx context.Context, t tenant.Tenant, taskID uint64) (err error) {
	ctx, span := s.startSpan(ctx, "tasks.delete", t, attribute.Int64("task.id", int64(taskID)))
	defer func() { endSpan(span, err) }()

	rows, err := s.taskRepo.Delete(ctx, t.OrganizationID, taskID)
	if err != nil {
		return apierrors.NewDataAccessError("delete task", err)
	}
	if rows == 0 {
		return apierrors.NewNotFoundError(resourceTask, taskID)
	}

	s.invalidateList(ctx, t.OrganizationID)
	s.invalidateTask(ctx, t.OrganizationID, taskID)
	return nil
}

// GenerateTasks uses AI to draft tasks from free text. Drafts are not saved.
func (s *TaskService) GenerateTasks(ctx context.Context, t tenant.Tenant, text string) (drafts []GeneratedTask, err error) {
	ctx, span := s.startSpan(ctx, "tasks.generate", t)
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(text) == "" {
		return nil, apierrors.NewValidationError("text", "is required")
	}
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	return filterGeneratedTasks(aiTasks, time.Now())
}

func filterGeneratedTasks(aiTasks []GeneratedTask, now time.Time) ([]GeneratedTask, error) {
	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := now.Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		aiTask.Name = strings.TrimSpace(aiTask.Name)
		if aiTask.Name == "" {
			continue
		}

		// A draft without a usable due date must be completed by the user
		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

func (s *TaskService) findTask(ctx context.Context, t tenant.Tenant, taskID uint64, op string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, t.OrganizationID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NewNotFoundError(resourceTask, taskID)
		}
		return nil, apierrors.NewDataAccessError(op, err)
	}
	return task, nil
}

func (s *TaskService) invalidateList(ctx context.Context, organizationID uint64) {
	if err := s.invalidator.InvalidateTaskList(ctx, organizationID); err != nil {
		log.WithError(err).WithField("organization_id", organizationID).Warn("failed to invalidate task list pages")
	}
}

func (s *TaskService) invalidateTask(ctx context.Context, organizationID, taskID uint64) {
	if err := s.invalidator.InvalidateTask(ctx, organizationID, taskID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"organization_id": organizationID,
			"task_id":         taskID,
		}).Warn("failed to invalidate task page")
	}
}

func (s *TaskService) startSpan(ctx context.Context, name string, t tenant.Tenant, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.Int64("organization.id", int64(t.OrganizationID)),
		attribute.Int64("user.id", int64(t.UserID)),
	)
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apierrors.NewValidationError("name", "is required")
	}
	if utf8.RuneCountInString(name) > constants.MaxTaskNameLength {
		return "", apierrors.NewValidationError("name", fmt.Sprintf("must be at most %d characters", constants.MaxTaskNameLength))
	}
	return name, nil
}

// normalizeDescription stores blank descriptions as absent
func normalizeDescription(description *string) *string {
	if description == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func updateFields(input UpdateTaskInput) (map[string]any, error) {
	if input.IsEmpty() {
		return nil, apierrors.NewValidationError("", "no fields to update")
	}

	fields := make(map[string]any, 4)
	if input.Name != nil {
		name, err := validateName(*input.Name)
		if err != nil {
			return nil, err
		}
		fields[models.TaskColumnName] = name
	}
	if input.ClearDescription {
		fields[models.TaskColumnDescription] = nil
	} else if input.Description != nil {
		fields[models.TaskColumnDescription] = normalizeDescription(input.Description)
	}
	if input.DueDate != nil {
		if input.DueDate.IsZero() {
			return nil, apierrors.NewValidationError("due_date", "must not be empty")
		}
		fields[models.TaskColumnDueDate] = input.DueDate.UTC()
	}
	if input.Done != nil {
		fields[models.TaskColumnDone] = *input.Done
	}
	return fields, nil
}
