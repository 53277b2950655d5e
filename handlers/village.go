package handlers

import (
	"conquest-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupVillageRoutes(app *fiber.App, villageService *services.VillageService, queueService *services.QueueService) {
	app.Post("/villages", villageService.CreateVillageHandler)
	app.Get("/villages/:id", villageService.GetVillageHandler)

	// Time-driven queues
	app.Post("/villages/:id/buildings", queueService.EnqueueBuildingHandler)
	app.Post("/villages/:id/training", queueService.EnqueueTrainingHandler)
}
