package handlers

import (
	"conquest-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReportRoutes(app *fiber.App, reportService *services.ReportService) {
	app.Get("/villages/:id/battles", reportService.ListBattlesHandler)
	app.Get("/villages/:id/events", reportService.ListEventsHandler)
	app.Get("/battles/:id", reportService.GetBattleHandler)
}
