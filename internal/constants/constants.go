package constants

import "time"

// Session and context keys
const (
	SessionCookieName = "task_session"

	// ContextKeyUserID is used both as the session key and the gin context key
	ContextKeyUserID = "user_id"

	// SessionKeyOrganizationID holds the caller's active organization
	SessionKeyOrganizationID = "organization_id"

	ContextKeyTenant = "tenant"
	ContextKeyTaskID = "task_id"

	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-ID"
)

// Pagination
const (
	// TasksPerPage is the fixed window of the task list page
	TasksPerPage = 8
	MinPage      = 1
)

// Auth
const (
	MinPasswordLength = 8
)

// Tasks
const (
	MaxTaskNameLength   = 255
	MaxAIGeneratedTasks = 20
)

// Cache
const (
	DefaultPageCacheTTL = 5 * time.Minute
)

// Routes
const (
	DashboardRoot = "/dashboard"
)
