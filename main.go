package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"loyalty-heist-system/handlers"
	"loyalty-heist-system/middleware"
	"loyalty-heist-system/models"
	"loyalty-heist-system/services"
	"loyalty-heist-system/utils"
	"loyalty-heist-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
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
		&models.LoyaltyUser{},
		&models.AttackTokenBalance{},
		&models.Heist{},
		&models.ItemDefinition{},
		&models.UserItem{},
		&models.ItemUsage{},
		&models.Referral{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	heistConfig, err := services.LoadHeistConfig()
	if err != nil {
		log.Fatal("invalid heist configuration:", err)
	}

	tokenService := services.NewTokenService(db)
	cooldownTracker := services.NewCooldownTracker(heistConfig)
	eligibilityService := services.NewEligibilityService(heistConfig, tokenService, cooldownTracker)
	itemEffectService := services.NewItemEffectService(heistConfig)
	statsService := services.NewHeistStatsService(db)
	itemService := services.NewItemService(db, services.NewHTTPCoinLedger())
	referralService := services.NewReferralService(db, tokenService)

	heistService := services.NewHeistService(
		db, heistConfig,
		tokenService, cooldownTracker, eligibilityService, itemEffectService,
		services.NewHTTPNotifier(), services.NewHTTPPointEventSink(),
	)

	if err := itemService.SeedCatalog(); err != nil {
		log.Fatal("failed to seed item catalog:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewLoyaltyUserSyncWorker(db)
	go syncWorker.Start(ctx, 10*time.Second)

	itemService.StartItemSweepScheduler()
	services.StartHeistArchiveScheduler(db)

	// ✅ Setup routes — enforced Gateway auth + user context on /user paths
	handlers.SetupHeistRoutes(app, heistService, eligibilityService, tokenService, statsService)
	handlers.SetupItemRoutes(app, itemService, referralService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Loyalty user sync worker running (every 10s)")
	log.Println("✅ Item sweep + heist archive schedulers running")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
