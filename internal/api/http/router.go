package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/policy"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Intake         *handlers.IntakeHandler
	Complaints     *handlers.ComplaintsHandler
	Customers      *handlers.CustomersHandler
	Users          *handlers.UsersHandler
	Policy         *handlers.PolicyHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
	Permissions    auth.Checker
	Metrics        http.Handler
	IntakeLimiter  fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	public := app.Group("/public")
	if cfg.IntakeLimiter != nil {
		public.Post("/complaints", cfg.IntakeLimiter, cfg.Intake.Submit)
	} else {
		public.Post("/complaints", cfg.Intake.Submit)
	}

	authn := cfg.AuthMiddleware.Handle
	can := func(resource policy.Resource, action policy.Action) fiber.Handler {
		return auth.RequirePermission(cfg.Permissions, resource, action)
	}

	complaints := app.Group("/complaints", authn)
	complaints.Get("/", can(policy.ResourceComplaints, policy.ActionRead), cfg.Complaints.List)
	complaints.Post("/", can(policy.ResourceComplaints, policy.ActionCreate), cfg.Complaints.Create)
	complaints.Get("/:id", can(policy.ResourceComplaints, policy.ActionRead), cfg.Complaints.Get)
	complaints.Post("/:id/transition", can(policy.ResourceComplaints, policy.ActionUpdate), cfg.Complaints.Transition)
	complaints.Post("/:id/assign", can(policy.ResourceComplaints, policy.ActionUpdate), cfg.Complaints.Assign)
	complaints.Post("/:id/priority", can(policy.ResourceComplaints, policy.ActionUpdate), cfg.Complaints.Priority)

	customers := app.Group("/customers", authn)
	customers.Get("/", can(policy.ResourceCustomers, policy.ActionRead), cfg.Customers.List)
	customers.Post("/", can(policy.ResourceCustomers, policy.ActionCreate), cfg.Customers.Create)

	users := app.Group("/users", authn)
	users.Get("/me", auth.RequireAuthenticated(), cfg.Users.Me)
	users.Get("/", can(policy.ResourceUsers, policy.ActionRead), cfg.Users.List)
	users.Post("/", can(policy.ResourceUsers, policy.ActionCreate), cfg.Users.Create)
	users.Get("/:id", can(policy.ResourceUsers, policy.ActionRead), cfg.Users.Get)
	users.Patch("/:id", can(policy.ResourceUsers, policy.ActionUpdate), cfg.Users.Update)
	users.Post("/:id/deactivate", can(policy.ResourceUsers, policy.ActionDelete), cfg.Users.Deactivate)
	users.Post("/:id/password", can(policy.ResourceUsers, policy.ActionUpdate), cfg.Users.ResetPassword)

	settings := app.Group("/policy", authn)
	settings.Get("/", can(policy.ResourceSettings, policy.ActionRead), cfg.Policy.Current)
	settings.Put("/permissions", can(policy.ResourceSettings, policy.ActionUpdate), cfg.Policy.UpdatePermissions)

	app.Post("/authz/check", authn, auth.RequireAuthenticated(), cfg.Policy.Check)

	app.Get("/dashboard", authn, can(policy.ResourceDashboard, policy.ActionRead), cfg.Dashboard.Stats)
	app.Get("/activity", authn, can(policy.ResourceDashboard, policy.ActionRead), cfg.Dashboard.Activity)
}
