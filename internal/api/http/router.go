package http

import (
	stdhttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/pixelvault/marketplace/internal/api/http/handlers"
	"github.com/pixelvault/marketplace/internal/auth"
	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/social"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Account        *handlers.AccountHandler
	Catalog        *handlers.CatalogHandler
	Billing        *handlers.BillingHandler
	Admin          *handlers.AdminHandler
	Settings       *handlers.SettingsHandler
	Social         *social.Provider
	AuthMiddleware *auth.Middleware
	Metrics        stdhttp.Handler
	AuthRateLimit  int
	UploadsPath    string
	UploadsDir     string
}

// RegisterRoutes wires HTTP routes. Health and metrics are registered before identity
// resolution so they never touch the session store.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}
	if cfg.UploadsPath != "" && cfg.UploadsDir != "" {
		app.Static(cfg.UploadsPath, cfg.UploadsDir)
	}

	app.Use(cfg.AuthMiddleware.Handle)

	limited := AuthRateLimiter(cfg.AuthRateLimit)
	app.Post("/signup", limited, cfg.Account.Signup)
	app.Post("/login", limited, cfg.Account.Login)
	app.Post("/logout", cfg.Account.Logout)
	app.Get("/userToken", cfg.Account.UserToken)

	if cfg.Social != nil {
		socialGroup := app.Group("/auth/social")
		socialGroup.Get("/login", cfg.Social.HandleLogin)
		socialGroup.Get("/callback", cfg.Social.HandleCallback)
	}

	app.Get("/categories", cfg.Catalog.ListCategories)
	app.Get("/images", cfg.Catalog.ListImages)
	app.Get("/images/:slug", cfg.Catalog.GetImage)
	app.Get("/images/:id/related", cfg.Catalog.Related)
	app.Get("/plans", cfg.Billing.ListPlans)
	app.Get("/settings", cfg.Settings.Get)

	authed := auth.RequireAuthenticated()
	app.Post("/changePassword", authed, cfg.Account.ChangePassword)
	app.Post("/updateProfile", authed, cfg.Account.UpdateProfile)
	app.Post("/images/:id/download", authed, cfg.Catalog.Download)
	app.Post("/coupons/apply", authed, cfg.Billing.ApplyCoupon)
	app.Post("/payments/order", authed, cfg.Billing.CreateOrder)
	app.Post("/payments/verify", authed, cfg.Billing.VerifyPayment)
	app.Get("/payments/history", authed, cfg.Billing.History)

	admin := app.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Patch("/users/:id/role", cfg.Admin.SetUserRole)
	admin.Delete("/users/:id", cfg.Admin.DeleteUser)

	admin.Post("/categories", cfg.Catalog.CreateCategory)
	admin.Delete("/categories/:id", cfg.Catalog.DeleteCategory)
	admin.Post("/images", cfg.Catalog.CreateImage)
	admin.Put("/images/:id", cfg.Catalog.UpdateImage)
	admin.Delete("/images/:id", cfg.Catalog.DeleteImage)

	admin.Get("/coupons", cfg.Billing.ListCoupons)
	admin.Post("/coupons", cfg.Billing.CreateCoupon)
	admin.Delete("/coupons/:id", cfg.Billing.DeleteCoupon)
	admin.Get("/plans", cfg.Billing.ListAllPlans)
	admin.Post("/plans", cfg.Billing.CreatePlan)
	admin.Put("/plans/:id", cfg.Billing.UpdatePlan)
	admin.Delete("/plans/:id", cfg.Billing.DeletePlan)
	admin.Get("/transactions", cfg.Billing.ListTransactions)

	admin.Get("/stats/overview", cfg.Admin.StatsOverview)
	admin.Get("/stats/monthly", cfg.Admin.StatsMonthly)
	admin.Put("/settings", cfg.Settings.Update)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "route not found")
	})
}
