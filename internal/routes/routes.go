package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/callpilot/callpilot-backend/internal/handlers"
	"github.com/callpilot/callpilot-backend/internal/middleware"
	"github.com/callpilot/callpilot-backend/internal/orchestrator"
	"github.com/callpilot/callpilot-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, orc *orchestrator.Orchestrator) {
	customerHandler := handlers.NewCustomerHandler(store)
	productHandler := handlers.NewProductHandler(store)
	callHandler := handlers.NewCallHandler(orc, store)

	api := app.Group("/api")

	// Customer routes - bearer token required (dashboard sends one)
	customers := api.Group("/customers", middleware.RequireAuth())
	customers.Get("/", customerHandler.GetCustomers)
	customers.Post("/", customerHandler.CreateCustomer)
	customers.Get("/:id", customerHandler.GetCustomer)
	customers.Put("/:id", customerHandler.UpdateCustomer)
	customers.Delete("/:id", customerHandler.DeleteCustomer)

	// Product routes
	products := api.Group("/products", middleware.RequireAuth())
	products.Get("/", productHandler.GetProducts)
	products.Post("/", productHandler.CreateProduct)
	products.Get("/:id", productHandler.GetProduct)
	products.Put("/:id", productHandler.UpdateProduct)
	products.Delete("/:id", productHandler.DeleteProduct)

	// Call orchestration routes
	calls := api.Group("/calls")
	calls.Post("/", callHandler.StartCall)
	calls.Get("/status", callHandler.GetStatus)
	calls.Delete("/active", callHandler.EndCall)
	calls.Get("/history", callHandler.GetHistory)
	calls.Get("/live", callHandler.GetLive)
}
