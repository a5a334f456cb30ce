package dto

import (
	"time"

	"github.com/yukikurage/taskdash/internal/models"
	"github.com/yukikurage/taskdash/internal/utils"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	DueDate        time.Time `json:"due_date"`
	Done           bool      `json:"done"`
	OrganizationID uint64    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TaskListPageDTO is the view model of one task list page
type TaskListPageDTO struct {
	Tasks []TaskDTO `json:"tasks"`
	// Page is 1-based, PageIndex is the 0-based window that was queried
	Page      int    `json:"page"`
	PageIndex int    `json:"page_index"`
	PerPage   int    `json:"per_page"`
	PageCount int    `json:"page_count"`
	Count     int64  `json:"count"`
	Query     string `json:"query"`
	// Empty tells the page to render the "create your first task" prompt
	Empty bool `json:"empty"`
}

// GeneratedTaskDTO is an unsaved task draft
type GeneratedTaskDTO struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:             task.ID,
		Name:           task.Name,
		Description:    task.Description,
		DueDate:        task.DueDate,
		Done:           task.Done,
		OrganizationID: task.OrganizationID,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}

// ToTaskListPageDTO builds the list page view. A page past the end and an
// organization without tasks both produce an empty page.
func ToTaskListPageDTO(tasks []models.Task, count int64, params utils.PageParams, query string) TaskListPageDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListPageDTO{
		Tasks:     items,
		Page:      params.Page,
		PageIndex: params.PageIndex,
		PerPage:   params.PerPage,
		PageCount: params.PageCount(count),
		Count:     count,
		Query:     query,
		Empty:     count == 0,
	}
}
