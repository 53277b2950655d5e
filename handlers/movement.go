package handlers

import (
	"conquest-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMovementRoutes(app *fiber.App, movementService *services.MovementService) {
	// type ∈ attack | support | spy | trade
	app.Post("/movements/:type", movementService.SendMovementHandler)
	app.Post("/movements/:id/cancel", movementService.CancelMovementHandler)
	app.Get("/villages/:id/movements", movementService.ListMovementsHandler)
}
