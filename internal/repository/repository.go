package repository

import (
	"context"

	"github.com/yukikurage/taskdash/internal/models"
)

// TaskRepository defines the interface for task data access. Every method
// except Create is scoped by organization.
type TaskRepository interface {
	// Create inserts a task; the store assigns its ID
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task owned by the organization
	FindByID(ctx context.Context, organizationID, id uint64) (*models.Task, error)

	// List retrieves one page of matching tasks plus the total match count
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update applies the given column values to a task owned by the organization
	Update(ctx context.Context, organizationID, id uint64, fields map[string]any) error

	// Delete removes a task owned by the organization and reports rows removed
	Delete(ctx context.Context, organizationID, id uint64) (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	OrganizationID uint64
	Query          string
	PageIndex      int
	PageSize       int
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates an organization together with its owner membership
	Create(ctx context.Context, org *models.Organization, owner *models.OrganizationMember) error

	// FindByInviteCode finds an organization by invite code
	FindByInviteCode(ctx context.Context, code string) (*models.Organization, error)

	// AddMember adds a member to an organization
	AddMember(ctx context.Context, member *models.OrganizationMember) error

	// FindMember finds a specific organization member
	FindMember(ctx context.Context, organizationID, userID uint64) (*models.OrganizationMember, error)

	// ListMembersByUserID lists all organizations a user is a member of
	ListMembersByUserID(ctx context.Context, userID uint64) ([]models.OrganizationMember, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// CreateWithPersonalOrganization creates a user, their personal organization,
	// and corresponding membership within a single transaction.
	CreateWithPersonalOrganization(ctx context.Context, user *models.User, org *models.Organization, member *models.OrganizationMember) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}
