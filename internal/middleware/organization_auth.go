package middleware

import (
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdash/internal/constants"
	apierrors "github.com/yukikurage/taskdash/internal/errors"
	"github.com/yukikurage/taskdash/internal/services"
	"github.com/yukikurage/taskdash/internal/tenant"
)

// OrganizationParam is the route parameter naming the organization of a page
const OrganizationParam = "organization"

// RequireOrganizationAccess resolves the tenant for page routes from the
// :organization parameter. Must run after RequireAuth.
func RequireOrganizationAccess(orgService *services.OrganizationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			abortWithError(c, apierrors.NewAuthenticationError(""))
			return
		}

		orgID, err := strconv.ParseUint(c.Param(OrganizationParam), 10, 64)
		if err != nil || orgID == 0 {
			// Return 404 instead of 400 to avoid leaking organization existence
			abortWithError(c, apierrors.NewNotFoundError("organization", 0))
			return
		}

		t, err := orgService.ResolveTenant(c.Request.Context(), userID, orgID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		tenant.Set(c, t)
		c.Next()
	}
}

// RequireActiveOrganization resolves the tenant for actions from the
// organization selected in the session. A missing or no longer accessible
// selection is an authentication failure and no task is touched.
func RequireActiveOrganization(orgService *services.OrganizationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			abortWithError(c, apierrors.NewAuthenticationError(""))
			return
		}

		orgID, ok := toUint64(sessions.Default(c).Get(constants.SessionKeyOrganizationID))
		if !ok || orgID == 0 {
			abortWithError(c, apierrors.NewAuthenticationError("No active organization selected"))
			return
		}

		t, err := orgService.ResolveTenant(c.Request.Context(), userID, orgID)
		if err != nil {
			if apierrors.IsNotFound(err) {
				err = apierrors.NewAuthenticationError("Active organization is not accessible")
			}
			abortWithError(c, err)
			return
		}

		tenant.Set(c, t)
		c.Next()
	}
}

// SetActiveOrganization stores the caller's active organization in the session
func SetActiveOrganization(c *gin.Context, organizationID uint64) error {
	session := sessions.Default(c)
	session.Set(constants.SessionKeyOrganizationID, organizationID)
	return session.Save()
}

func abortWithError(c *gin.Context, err error) {
	if apierrors.IsDataAccess(err) {
		log.WithError(err).WithField("path", c.FullPath()).Error("failed to resolve tenant")
	}
	apierrors.RespondWithDomainError(c, err)
	c.Abort()
}
