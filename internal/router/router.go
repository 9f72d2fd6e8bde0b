// Package router maps the HTTP surface onto handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/avetos/rental-backoffice/internal/handler"
	"github.com/avetos/rental-backoffice/internal/middleware"
	"github.com/avetos/rental-backoffice/internal/model"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserAdminHandler
	Items      *handler.ItemHandler
	Clients    *handler.ClientHandler
	Contacts   *handler.ContactHandler
	Suppliers  *handler.SupplierHandler
	Events     *handler.EventHandler
	Quotations *handler.QuotationHandler
}

// Register wires all routes.  Everything except the health check and
// the auth endpoints sits behind JWT; write access is further narrowed
// by role.  cacheMW, when non-nil, is applied to the read-only catalog
// listings.
func Register(e *echo.Echo, h Handlers, jwtSecret string, cacheMW echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/refresh-access", h.Auth.RefreshAccess)
	auth.POST("/logout", h.Auth.Logout)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(model.RoleAdmin, model.RoleSales, model.RoleOps, model.RoleFinance))

	v1.GET("/me", h.Auth.Me)

	// Staff accounts, admin only.
	admin := v1.Group("/users", middleware.RequireRole(model.RoleAdmin))
	admin.POST("", h.Users.Create)
	admin.GET("", h.Users.List)
	admin.PUT("/:id", h.Users.Update)
	admin.PATCH("/:id/active", h.Users.SetActive)
	admin.POST("/:id/password", h.Users.ResetPassword)

	// Catalog.  Writes are for admin and ops; every role may read.
	catalogWrite := middleware.RequireRole(model.RoleAdmin, model.RoleOps)
	items := v1.Group("/items")
	if cacheMW != nil {
		items.GET("", h.Items.List, cacheMW)
	} else {
		items.GET("", h.Items.List)
	}
	items.POST("", h.Items.Create, catalogWrite)
	items.GET("/:id", h.Items.Get)
	items.PUT("/:id", h.Items.Update, catalogWrite)
	items.PATCH("/:id/active", h.Items.SetActive, catalogWrite)
	items.GET("/:id/components", h.Items.GetComponents)
	items.PUT("/:id/components", h.Items.SetComponents, catalogWrite)
	items.GET("/:id/stock", h.Items.GetStock)
	items.PUT("/:id/stock", h.Items.SetStock, catalogWrite)
	items.GET("/:id/assets", h.Items.ListAssets)
	items.POST("/:id/assets", h.Items.AddAsset, catalogWrite)
	items.PATCH("/assets/:asset_id/active", h.Items.SetAssetActive, catalogWrite)
	items.GET("/:id/availability", h.Items.Availability)

	// CRM.  Sales owns clients and contacts.
	crmWrite := middleware.RequireRole(model.RoleAdmin, model.RoleSales)
	clients := v1.Group("/clients")
	clients.GET("", h.Clients.List)
	clients.POST("", h.Clients.Create, crmWrite)
	clients.GET("/:id", h.Clients.Get)
	clients.PUT("/:id", h.Clients.Update, crmWrite)
	clients.DELETE("/:id", h.Clients.Delete, middleware.RequireRole(model.RoleAdmin))
	clients.GET("/:id/contacts", h.Contacts.ListByClient)
	clients.POST("/:id/contacts", h.Contacts.Create, crmWrite)

	contacts := v1.Group("/contacts")
	contacts.PUT("/:contact_id", h.Contacts.Update, crmWrite)
	contacts.PATCH("/:contact_id/primary", h.Contacts.SetPrimary, crmWrite)
	contacts.DELETE("/:contact_id", h.Contacts.Delete, crmWrite)

	suppliers := v1.Group("/suppliers")
	suppliers.GET("", h.Suppliers.List)
	suppliers.POST("", h.Suppliers.Create, catalogWrite)
	suppliers.GET("/:id", h.Suppliers.Get)
	suppliers.PUT("/:id", h.Suppliers.Update, catalogWrite)
	suppliers.PATCH("/:id/active", h.Suppliers.SetActive, catalogWrite)
	suppliers.DELETE("/:id", h.Suppliers.Delete, middleware.RequireRole(model.RoleAdmin))

	events := v1.Group("/events")
	events.GET("", h.Events.List)
	events.POST("", h.Events.Create, crmWrite)
	events.GET("/:id", h.Events.Get)
	events.PUT("/:id", h.Events.Update, crmWrite)
	events.DELETE("/:id", h.Events.Delete, middleware.RequireRole(model.RoleAdmin))

	// Quotations.  Drafting and acceptance are sales work; finance may
	// read everything.
	quoteWrite := middleware.RequireRole(model.RoleAdmin, model.RoleSales)
	quotes := v1.Group("/quotations")
	quotes.GET("", h.Quotations.List)
	quotes.POST("", h.Quotations.Create, quoteWrite)
	quotes.GET("/:id", h.Quotations.Get)
	quotes.PUT("/:id", h.Quotations.UpdateHeader, quoteWrite)
	quotes.DELETE("/:id", h.Quotations.Delete, quoteWrite)
	quotes.POST("/:id/lines", h.Quotations.AddLine, quoteWrite)
	quotes.PUT("/:id/lines/:line_id", h.Quotations.UpdateLine, quoteWrite)
	quotes.DELETE("/:id/lines/:line_id", h.Quotations.DeleteLine, quoteWrite)
	quotes.POST("/:id/status", h.Quotations.SetStatus, quoteWrite)
	quotes.POST("/:id/accept", h.Quotations.Accept, quoteWrite)
	quotes.GET("/:id/preview", h.Quotations.Preview)
	quotes.GET("/:id/history", h.Quotations.History)
	quotes.GET("/:id/reservations", h.Quotations.ListReservations)
}
