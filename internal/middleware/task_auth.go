package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdash/internal/constants"
	apierrors "github.com/yukikurage/taskdash/internal/errors"
)

// TaskParam is the route parameter holding a task id
const TaskParam = "task"

// RequireTaskID parses the :task parameter. Ownership is checked by the
// task service against the resolved tenant.
func RequireTaskID() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param(TaskParam), 10, 64)
		if err != nil || taskID == 0 {
			apierrors.RespondWithDomainError(c, apierrors.NewValidationError(TaskParam, "must be a positive integer"))
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTaskID, taskID)
		c.Next()
	}
}

// GetTaskID retrieves the task id set by RequireTaskID
func GetTaskID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get(constants.ContextKeyTaskID)
	if !exists {
		return 0, false
	}
	return toUint64(value)
}
