package api

import (
	"github.com/go-chi/chi/v5"
)

func setupOpsRoutes(r chi.Router, handlers *routeHandlers) {
	r.Get("/healthz", handlers.opsHandler.health())
	r.Handle("/metrics", handlers.opsHandler.metrics())
}

// setupPublicRoutes sets up the catalog and the auth endpoints
func setupPublicRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)

		r.Get("/projects", handlers.catalogHandler.getCatalog())
		r.Get("/projects/featured", handlers.catalogHandler.getFeatured())
		r.Get("/projects/{projectID}", handlers.catalogHandler.getProject())

		r.Post("/auth/login", handlers.authHandler.login())
		r.Post("/auth/register", handlers.authHandler.register())
		r.Post("/auth/refresh", handlers.authHandler.refresh())
		r.Post("/auth/logout", handlers.authHandler.logout())
		r.With(authMiddleware.authenticate).Get("/auth/me", handlers.authHandler.me())
	})
}

// setupAdminRoutes sets up project management for the signed-in author
func setupAdminRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)
		r.Use(authMiddleware.authenticate)

		r.Get("/projects", handlers.adminProjectHandler.listProjects())
		r.Post("/projects", handlers.adminProjectHandler.createProject())
		r.Get("/projects/{projectID}", handlers.adminProjectHandler.getProject())
		r.Put("/projects/{projectID}", handlers.adminProjectHandler.updateProject())
		r.Patch("/projects/{projectID}", handlers.adminProjectHandler.updateProject())
		r.Delete("/projects/{projectID}", handlers.adminProjectHandler.deleteProject())
		r.Put("/projects/{projectID}/visibility", handlers.adminProjectHandler.setVisibility())

		r.Get("/notifications", handlers.noticeHandler.stream())
	})
}

// setupAccountRoutes sets up the account settings endpoints
func setupAccountRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Route("/account", func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)
		r.Use(authMiddleware.authenticate)

		r.Get("/", handlers.accountHandler.getAccount())
		r.Put("/profile", handlers.accountHandler.updateProfile())
		r.Put("/skills", handlers.accountHandler.updateSkills())
		r.Put("/social", handlers.accountHandler.updateSocial())
		r.Put("/password", handlers.accountHandler.changePassword())
		r.Post("/avatar", handlers.accountHandler.uploadAvatar())
	})
}
