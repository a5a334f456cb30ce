package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	apierrors "github.com/yukikurage/taskdash/internal/errors"
	"github.com/yukikurage/taskdash/internal/models"
	"github.com/yukikurage/taskdash/internal/repository"
	"github.com/yukikurage/taskdash/internal/testutil"
	"gorm.io/gorm"
)

type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AuthService
	ctx     context.Context
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.service = NewAuthService(repository.NewUserRepository(suite.db))
	suite.ctx = context.Background()
}

func (suite *AuthServiceTestSuite) TestSignup_CreatesPersonalOrganization() {
	result, err := suite.service.Signup(suite.ctx, SignupInput{Username: " alice ", Password: "password123"})

	suite.Require().NoError(err)
	suite.Equal("alice", result.User.Username)
	suite.NotEqual("password123", result.User.PasswordHash)
	suite.Equal("alice's organization", result.Organization.Name)
	suite.NotEmpty(result.Organization.InviteCode)

	var member models.OrganizationMember
	suite.Require().NoError(suite.db.
		Where("organization_id = ? AND user_id = ?", result.Organization.ID, result.User.ID).
		First(&member).Error)
	suite.Equal(models.RoleOwner, member.Role)
}

func (suite *AuthServiceTestSuite) TestSignup_Validation() {
	_, err := suite.service.Signup(suite.ctx, SignupInput{Username: "  ", Password: "password123"})
	suite.True(apierrors.IsValidation(err))

	_, err = suite.service.Signup(suite.ctx, SignupInput{Username: "bob", Password: "short"})
	suite.ErrorIs(err, ErrPasswordTooShort)
}

func (suite *AuthServiceTestSuite) TestSignup_DuplicateUsername() {
	_, err := suite.service.Signup(suite.ctx, SignupInput{Username: "alice", Password: "password123"})
	suite.Require().NoError(err)

	_, err = suite.service.Signup(suite.ctx, SignupInput{Username: "alice", Password: "password456"})
	suite.ErrorIs(err, ErrUsernameTaken)
}

func (suite *AuthServiceTestSuite) TestLogin() {
	result, err := suite.service.Signup(suite.ctx, SignupInput{Username: "alice", Password: "password123"})
	suite.Require().NoError(err)

	user, err := suite.service.Login(suite.ctx, LoginInput{Username: "alice", Password: "password123"})
	suite.Require().NoError(err)
	suite.Equal(result.User.ID, user.ID)

	_, err = suite.service.Login(suite.ctx, LoginInput{Username: "alice", Password: "wrong-password"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, err = suite.service.Login(suite.ctx, LoginInput{Username: "nobody", Password: "password123"})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestGetUser() {
	user := testutil.CreateUser(suite.T(), suite.db, "carol")

	found, err := suite.service.GetUser(suite.ctx, user.ID)
	suite.Require().NoError(err)
	suite.Equal("carol", found.Username)

	_, err = suite.service.GetUser(suite.ctx, user.ID+100)
	suite.ErrorIs(err, ErrUserNotFound)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
