package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"
	"go-stock-ledger/internal/ws"
)

// Services is what the HTTP surface is wired to.
type Services struct {
	Auth      service.AuthService
	Users     repository.UserRepository
	Accounts  service.UserService
	Inventory service.InventoryService
	Opname    service.OpnameService
	Reports   service.ReportService
	// Hub is optional; without it /ws is not mounted.
	Hub *ws.Hub
}

func SetupRoutes(app *fiber.App, s Services) {
	authHandler := NewAuthHandler(s.Auth, s.Users)
	invHandler := NewInventoryHandler(s.Inventory)
	opnameHandler := NewOpnameHandler(s.Opname)
	reportHandler := NewReportHandler(s.Reports)
	dashHandler := NewDashboardHandler(s.Reports)
	userHandler := NewUserHandler(s.Accounts)

	requireAuth := middleware.RequireAuth(s.Auth)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/change-password", authHandler.ChangePassword)

	// User management
	protected.Get("/users", adminOnly, userHandler.GetUsers)
	protected.Post("/users", adminOnly, userHandler.CreateUser)
	protected.Put("/users/:id", adminOnly, userHandler.UpdateUser)

	// Products
	protected.Get("/products", invHandler.GetProducts)
	protected.Post("/products", invHandler.CreateProduct)
	protected.Post("/products/recalculate", adminOnly, invHandler.RecalculateAll)
	protected.Get("/products/:id", invHandler.GetProduct)
	protected.Put("/products/:id", invHandler.UpdateProduct)
	protected.Delete("/products/:id", adminOnly, invHandler.DeleteProduct)
	protected.Post("/products/:id/recalculate", invHandler.Recalculate)
	protected.Post("/products/:id/correction", adminOnly, invHandler.CorrectProduct)
	protected.Get("/products/:id/batches", invHandler.GetBatches)

	// Units & movements
	protected.Get("/units", invHandler.GetUnits)
	protected.Post("/units", invHandler.RegisterUnits)
	protected.Get("/lookup/:code", invHandler.Lookup)
	protected.Post("/inbound", invHandler.Inbound)
	protected.Post("/outbound", invHandler.Outbound)
	protected.Post("/adjustments", adminOnly, invHandler.Adjust)

	// Stock opname
	opname := protected.Group("/opname")
	opname.Get("/groups", opnameHandler.GetGroups)
	opname.Get("/sessions/:sid", opnameHandler.GetSession)
	opname.Delete("/sessions/:sid", opnameHandler.Discard)
	opname.Put("/sessions/:sid/lines/:key", opnameHandler.UpdateLine)
	opname.Delete("/sessions/:sid/lines/:key", opnameHandler.ResetLine)
	opname.Post("/sessions/:sid/scan", opnameHandler.Scan)
	opname.Post("/sessions/:sid/commit", opnameHandler.Commit)
	opname.Get("/requests", opnameHandler.GetRequests)
	opname.Post("/requests/:id/approve", adminOnly, opnameHandler.Approve)
	opname.Post("/requests/:id/reject", adminOnly, opnameHandler.Reject)

	// Reports
	protected.Get("/reports/stock-card/:productId", reportHandler.GetStockCard)
	protected.Get("/reports/recap", reportHandler.GetRecap)
	protected.Get("/reports/movements", reportHandler.GetMovements)
	protected.Get("/dashboard", dashHandler.GetDashboard)

	// WebSocket Route
	if s.Hub != nil {
		app.Use("/ws", wsUpgrade, requireAuth)
		app.Get("/ws", wsStream(s.Hub))
	}
}
