// Package server assembles the HTTP router from the service layer.
package server

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdash/internal/cache"
	"github.com/yukikurage/taskdash/internal/constants"
	"github.com/yukikurage/taskdash/internal/handlers"
	"github.com/yukikurage/taskdash/internal/middleware"
	"github.com/yukikurage/taskdash/internal/repository"
	"github.com/yukikurage/taskdash/internal/services"
	"gorm.io/gorm"
)

// Dependencies are the runtime collaborators of the router
type Dependencies struct {
	DB           *gorm.DB
	SessionStore sessions.Store
	// Pages caches rendered pages; nil disables caching
	Pages       cache.Store
	AIService   *services.AIService
	StrictReads bool
	Logger      *log.Logger
}

// NewRouter wires repositories, services and handlers into a gin engine
func NewRouter(deps Dependencies) *gin.Engine {
	pages := deps.Pages
	if pages == nil {
		pages = cache.Noop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	userRepo := repository.NewUserRepository(deps.DB)
	orgRepo := repository.NewOrganizationRepository(deps.DB)
	taskRepo := repository.NewTaskRepository(deps.DB)

	authService := services.NewAuthService(userRepo)
	orgService := services.NewOrganizationService(orgRepo)
	taskService := services.NewTaskService(taskRepo, pages, deps.AIService)

	authHandler := handlers.NewAuthHandler(authService, orgService)
	orgHandler := handlers.NewOrganizationHandler(orgService)
	taskHandler := handlers.NewTaskHandler(taskService, pages, deps.StrictReads)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task dashboard is running",
		})
	})

	// Pages
	dashboard := r.Group(constants.DashboardRoot)
	dashboard.Use(middleware.RequireAuth())
	{
		org := dashboard.Group("/:"+middleware.OrganizationParam, middleware.RequireOrganizationAccess(orgService))
		org.GET("/tasks", taskHandler.ListTasks)
		org.GET("/tasks/:"+middleware.TaskParam, taskHandler.GetTask)
	}

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Organization routes (protected)
		orgs := api.Group("/organizations")
		orgs.Use(middleware.RequireAuth())
		{
			orgs.POST("", orgHandler.CreateOrganization)
			orgs.GET("", orgHandler.ListOrganizations)
			orgs.POST("/join", orgHandler.JoinOrganization)
			orgs.POST("/:"+middleware.OrganizationParam+"/select", orgHandler.SelectOrganization)
		}

		// Task actions run against the active organization
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(), middleware.RequireActiveOrganization(orgService))
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.PATCH("/:"+middleware.TaskParam, middleware.RequireTaskID(), taskHandler.UpdateTask)
			tasks.DELETE("/:"+middleware.TaskParam, middleware.RequireTaskID(), taskHandler.DeleteTask)
		}
	}

	return r
}
