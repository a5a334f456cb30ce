// Package tenant carries the resolved caller identity that scopes every
// task query and mutation.
package tenant

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdash/internal/constants"
)

// Tenant is the caller's user and active organization
type Tenant struct {
	UserID         uint64
	OrganizationID uint64
}

// Valid reports whether both identifiers are set
func (t Tenant) Valid() bool {
	return t.UserID != 0 && t.OrganizationID != 0
}

// Set stores the tenant in the gin context
func Set(c *gin.Context, t Tenant) {
	c.Set(constants.ContextKeyTenant, t)
}

// FromContext retrieves the tenant set by the tenant middleware
func FromContext(c *gin.Context) (Tenant, bool) {
	value, exists := c.Get(constants.ContextKeyTenant)
	if !exists {
		return Tenant{}, false
	}
	t, ok := value.(Tenant)
	if !ok || !t.Valid() {
		return Tenant{}, false
	}
	return t, true
}
