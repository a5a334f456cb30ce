package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apierrors "github.com/yukikurage/taskdash/internal/errors"
	"github.com/yukikurage/taskdash/internal/models"
	"github.com/yukikurage/taskdash/internal/repository"
	"github.com/yukikurage/taskdash/internal/tenant"
	"github.com/yukikurage/taskdash/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidOrganizationName    = errors.New("organization name cannot be empty")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
	ErrInvalidInviteCode          = errors.New("invalid invite code")
	ErrAlreadyOrganizationMember  = errors.New("user is already a member of this organization")
)

const resourceOrganization = "organization"

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	orgRepo repository.OrganizationRepository
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository) *OrganizationService {
	return &OrganizationService{
		orgRepo: orgRepo,
	}
}

// CreateOrganizationInput represents parameters to create a new organization.
type CreateOrganizationInput struct {
	Name    string
	OwnerID uint64
}

// CreateOrganization creates a new organization and assigns the owner.
func (s *OrganizationService) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidOrganizationName
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	org := &models.Organization{
		Name:       name,
		InviteCode: inviteCode,
	}
	owner := &models.OrganizationMember{
		UserID:   input.OwnerID,
		Role:     models.RoleOwner,
		JoinedAt: time.Now(),
	}

	if err := s.orgRepo.Create(ctx, org, owner); err != nil {
		return nil, apierrors.NewDataAccessError("create organization", err)
	}

	return org, nil
}

// ListOrganizationsForUser returns organizations the user belongs to.
func (s *OrganizationService) ListOrganizationsForUser(ctx context.Context, userID uint64) ([]models.OrganizationMember, error) {
	memberships, err := s.orgRepo.ListMembersByUserID(ctx, userID)
	if err != nil {
		return nil, apierrors.NewDataAccessError("list organizations", err)
	}
	return memberships, nil
}

// JoinOrganizationByInvite adds a user to an organization via invite code.
func (s *OrganizationService) JoinOrganizationByInvite(ctx context.Context, userID uint64, inviteCode string) (*models.Organization, error) {
	org, err := s.orgRepo.FindByInviteCode(ctx, strings.TrimSpace(inviteCode))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, apierrors.NewDataAccessError("find organization by invite code", err)
	}

	if _, err := s.orgRepo.FindMember(ctx, org.ID, userID); err == nil {
		return nil, ErrAlreadyOrganizationMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.NewDataAccessError("verify membership", err)
	}

	member := &models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           models.RoleMember,
		JoinedAt:       time.Now(),
	}

	if err := s.orgRepo.AddMember(ctx, member); err != nil {
		return nil, apierrors.NewDataAccessError("add member", err)
	}

	return org, nil
}

// ResolveTenant checks that the user belongs to the organization and returns
// the tenant for task operations. Non-members get a NotFoundError so the
// organization's existence is not leaked.
func (s *OrganizationService) ResolveTenant(ctx context.Context, userID, organizationID uint64) (tenant.Tenant, error) {
	if userID == 0 {
		return tenant.Tenant{}, apierrors.NewAuthenticationError("")
	}
	if organizationID == 0 {
		return tenant.Tenant{}, apierrors.NewNotFoundError(resourceOrganization, organizationID)
	}

	if _, err := s.orgRepo.FindMember(ctx, organizationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tenant.Tenant{}, apierrors.NewNotFoundError(resourceOrganization, organizationID)
		}
		return tenant.Tenant{}, apierrors.NewDataAccessError(fmt.Sprintf("resolve membership of organization %d", organizationID), err)
	}

	return tenant.Tenant{UserID: userID, OrganizationID: organizationID}, nil
}
