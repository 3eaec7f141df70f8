package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskman-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskman-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Add trace IDs for error correlation

	taskHandler := api.NewTaskHandler(app.container.Service(), app.logger)
	healthHandler := api.NewHealthHandler(app.container)
	storageHandler := api.NewStorageHandler(app.container)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Delete("/tasks", taskHandler.ClearTasks)

		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Patch("/tasks/{id}", taskHandler.UpdateTask)
		r.Post("/tasks/{id}/toggle", taskHandler.ToggleTask)
		r.Delete("/tasks/{id}", taskHandler.DeleteTask)

		r.Post("/storage/refresh", storageHandler.Refresh)
	})

	// Health check endpoint
	r.Get("/healthz", healthHandler.Health)

	return r
}
