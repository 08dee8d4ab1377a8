package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"programhub/internal/http/middleware"
	"programhub/internal/service"
)

// Services groups the domain services the routes depend on.
type Services struct {
	Programs   service.ProgramService
	Comments   service.CommentService
	Categories service.CategoryService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. db may be nil
// when persistence is in memory. Authenticate must already run globally so
// handlers can read the actor.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc Services) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	authed := middleware.RequireActor()

	app.Get("/programs", ListPrograms(svc.Programs))
	app.Post("/programs", authed, CreateProgram(svc.Programs))
	app.Get("/programs/:id", GetProgram(svc.Programs))
	app.Put("/programs/:id", authed, UpdateProgram(svc.Programs))
	// Browsers cannot send multipart PUT from a plain form.
	app.Post("/programs/:id", authed, UpdateProgram(svc.Programs))
	app.Delete("/programs/:id", authed, DeleteProgram(svc.Programs))
	app.Get("/programs/:id/download", DownloadProgram(svc.Programs))
	app.Get("/programs/:id/thumbnail", ProgramThumbnail(svc.Programs))

	app.Post("/programs/:id/comments", authed, AddComment(svc.Comments))
	app.Put("/comments/:id", authed, UpdateComment(svc.Comments))
	app.Delete("/comments/:id", authed, DeleteComment(svc.Comments))

	app.Get("/categories", ListCategories(svc.Categories))
	app.Get("/categories/:slug", GetCategory(svc.Categories))
}
