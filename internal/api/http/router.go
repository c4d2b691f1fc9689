package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bug-tracker/internal/api/http/handlers"
	"github.com/spec-kit/bug-tracker/internal/auth"
	"github.com/spec-kit/bug-tracker/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Bugs           *handlers.BugsHandler
	Comments       *handlers.CommentsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Post("/logout", cfg.Auth.Logout)
	authProtected.Get("/me", cfg.Auth.Me)
	authProtected.Post("/password/change", cfg.Auth.ChangePassword)

	bugs := app.Group("/bugs", cfg.AuthMiddleware.Handle)
	bugs.Post("", cfg.Bugs.CreateBug)
	bugs.Get("", cfg.Bugs.ListBugs)
	bugs.Get("/:id", cfg.Bugs.GetBug)
	bugs.Delete("/:id", cfg.Bugs.DeleteBug)
	bugs.Put("/:id/assign", cfg.Bugs.AssignBug)
	bugs.Put("/:id/status", cfg.Bugs.ChangeStatus)
	bugs.Get("/:id/history", cfg.Bugs.ListHistory)

	bugs.Post("/:id/comments", cfg.Comments.AddComment)
	bugs.Get("/:id/comments", cfg.Comments.ListComments)
	bugs.Put("/:id/comments/:commentId", cfg.Comments.EditComment)
	bugs.Delete("/:id/comments/:commentId", cfg.Comments.DeleteComment)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	users.Post("", cfg.Users.CreateUser)
	users.Get("", cfg.Users.ListUsers)
	users.Get("/:id", cfg.Users.GetUser)
	users.Put("/:id", cfg.Users.UpdateUser)
	users.Delete("/:id", cfg.Users.DeleteUser)
}
