package repository

import (
	"context"

	"github.com/yukikurage/taskdash/internal/database"
	"github.com/yukikurage/taskdash/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID within one organization
func (r *GormTaskRepository) FindByID(ctx context.Context, organizationID, id uint64) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("tasks.organization_id = ? AND tasks.id = ?", organizationID, id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination. Rows are ordered by
// ID so that consecutive pages neither overlap nor skip rows.
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(
			database.ForOrganization("tasks", filter.OrganizationID),
			database.ContainsText(filter.Query, "tasks.name", "tasks.description"),
		).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tasks := []models.Task{}
	if total == 0 {
		return tasks, 0, nil
	}

	err := query.
		Order("tasks.id ASC").
		Scopes(database.Paginate(filter.PageIndex, filter.PageSize)).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update applies a partial update. Ownership is part of the WHERE clause so
// a foreign task is never touched.
func (r *GormTaskRepository) Update(ctx context.Context, organizationID, id uint64, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("tasks.organization_id = ? AND tasks.id = ?", organizationID, id).
		Updates(fields).Error
}

// Delete permanently removes a task
func (r *GormTaskRepository) Delete(ctx context.Context, organizationID, id uint64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tasks.organization_id = ? AND tasks.id = ?", organizationID, id).
		Delete(&models.Task{})
	return result.RowsAffected, result.Error
}
