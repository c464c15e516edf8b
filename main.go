package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/callpilot/callpilot-backend/database"
	"github.com/callpilot/callpilot-backend/internal/callagent"
	"github.com/callpilot/callpilot-backend/internal/history"
	"github.com/callpilot/callpilot-backend/internal/models"
	"github.com/callpilot/callpilot-backend/internal/orchestrator"
	"github.com/callpilot/callpilot-backend/internal/routes"
	"github.com/callpilot/callpilot-backend/internal/storage"
	"github.com/callpilot/callpilot-backend/internal/stream"
)

func main() {
	// Load .env file for local development
	err := godotenv.Load(".env")
	if err != nil {
		err = godotenv.Load("environments/.env.development")
		if err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	callAgentURL := os.Getenv("CALL_AGENT_URL")
	if callAgentURL == "" {
		callAgentURL = "http://localhost:8000"
	}
	websocketURL := os.Getenv("WEBSOCKET_URL")
	if websocketURL == "" {
		websocketURL = "ws://localhost:8000/ws"
	}

	// Initialize storage
	var store storage.Store
	var hist *history.Store

	// Check if we should use memory store (for testing/demo)
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage with demo data (not for production!)")
		store = storage.NewDemoStore()
		hist = history.NewStore(history.NewMemoryPersister())
	} else {
		// Connect to database
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		// Run migrations
		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Customer{},
			&models.Product{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")

		dataDir := os.Getenv("DATA_DIR")
		if dataDir == "" {
			dataDir = "."
		}
		hist = history.NewStore(history.NewFilePersister(dataDir))
	}

	// Set global instance
	storage.SetStore(store)

	// Initialize call orchestration
	agent := callagent.NewClient(callAgentURL)
	orc := orchestrator.New(agent, hist)

	streamClient := stream.NewClient(websocketURL, orc.HandleStreamEvent)
	streamClient.OnConnectionChange(orc.HandleConnectionChange)
	orc.AttachStream(streamClient)
	streamClient.Start()

	log.Println("✅ Call orchestrator initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "CallPilot Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check endpoint with database status
	app.Get("/", func(c *fiber.Ctx) error {
		response := fiber.Map{
			"service":    "CallPilot Backend API",
			"version":    "1.0.0",
			"status":     "healthy",
			"storage":    getStorageType(),
			"call_agent": callAgentURL,
			"feed": fiber.Map{
				"url":       websocketURL,
				"connected": streamClient.Connected(),
			},
			"calls": fiber.Map{
				"recorded": hist.Len(),
			},
		}

		// Add database status if using database
		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			dbStatus := "connected"
			if err != nil {
				dbStatus = "error: " + err.Error()
			} else if err := sqlDB.Ping(); err != nil {
				dbStatus = "error: " + err.Error()
			}

			var customerCount, productCount int64
			database.DB.Model(&models.Customer{}).Count(&customerCount)
			database.DB.Model(&models.Product{}).Count(&productCount)

			response["database"] = fiber.Map{
				"status":    dbStatus,
				"customers": customerCount,
				"products":  productCount,
			}
		}

		return c.JSON(response)
	})

	// Health check endpoint for monitoring
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		statusCode := 200

		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			if err != nil || sqlDB.Ping() != nil {
				status = "unhealthy"
				statusCode = 503
			}
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"database": status == "healthy",
				"feed":     streamClient.Connected(),
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(app, store, orc)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Closing status feed connection...")
		streamClient.Close()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 CallPilot Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("📞 Call agent: %s", callAgentURL)
	log.Printf("📡 Status feed: %s", websocketURL)
	log.Printf("🗂  Call history: %d recorded attempts", hist.Len())
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Demo)"
	}
	return "PostgreSQL Database"
}
