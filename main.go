package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conquest-engine/handlers"
	"conquest-engine/middleware"
	"conquest-engine/models"
	"conquest-engine/services"
	"conquest-engine/utils"
	"conquest-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// Only Gateway requests allowed; the engine has no public surface.
	app.Use(middleware.GatewayAuthMiddleware())

	app.Use(cors.New(cors.Config{
		AllowOrigins: os.Getenv("ALLOWED_ORIGINS"),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Alliance{},
		&models.Player{},
		&models.Village{},
		&models.VillageTroop{},
		&models.StationedSupport{},
		&models.Movement{},
		&models.Battle{},
		&models.BuildingQueueEntry{},
		&models.TrainingQueueEntry{},
		&models.DomainEvent{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	cfg := services.LoadConfig()
	clock := services.NewSystemClock()

	catalogPath := os.Getenv("UNIT_CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "config/units.yaml"
	}
	catalog, err := services.LoadUnitCatalog(catalogPath)
	if err != nil {
		log.Fatal("failed to load unit catalog:", err)
	}

	ledger := services.NewResourceLedger(cfg)
	strength := services.NewStrengthCalculator(catalog, cfg)
	resolver := services.NewBattleResolver(strength, catalog, cfg)
	events := services.NewEventService()

	villageService := services.NewVillageService(db, ledger, cfg, clock)
	movementService := services.NewMovementService(db, catalog, ledger, villageService, cfg, clock)
	movementScheduler := services.NewMovementScheduler(db, resolver, ledger, catalog, villageService, events, cfg)
	queueService := services.NewQueueService(db, catalog, ledger, villageService, events, cfg, clock)
	reportService := services.NewReportService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic engine trigger: movements, queues, production accrual.
	engineScheduler := services.NewEngineScheduler(movementScheduler, queueService, villageService, cfg, clock)
	engineScheduler.Start()
	defer engineScheduler.Stop()

	// Battle report archival to R2 once the history window expires.
	archiveClient := workers.NewBattleArchiveClient(db, cfg.BattleArchiveAfter)
	go workers.PollBattleArchives(ctx, archiveClient, 1*time.Hour)

	handlers.SetupVillageRoutes(app, villageService, queueService)
	handlers.SetupMovementRoutes(app, movementService)
	handlers.SetupReportRoutes(app, reportService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Engine running on http://localhost:5300")
	log.Println("✅ Movement/queue schedulers running")
	log.Println("✅ Battle archive worker running (hourly)")
	log.Println("✅ GatewayAuthMiddleware enforced globally")

	<-ctx.Done()
	log.Println("Shutting down engine...")
	_ = app.Shutdown()
}
