package handlers

import (
	"github.com/gin-gonic/gin"
)

// Routes bundles every handler and the middleware that guards them
type Routes struct {
	Health     *HealthHandler
	Auth       *AuthHandler
	AdminUsers *AdminUserHandler
	Employees  *EmployeeHandler
	Files      *FileHandler
	Public     *PublicHandler

	// Session authenticates the principal and rejects blocked accounts
	Session gin.HandlerFunc
	// LoginLimit throttles login attempts per client IP
	LoginLimit gin.HandlerFunc
}

// Register mounts the HTTP surface on router
func (r *Routes) Register(router *gin.Engine) {
	router.GET("/health", r.Health.HandleHealth)
	router.GET("/ready", r.Health.HandleReady)

	api := router.Group("/api")

	// Public endpoints
	api.POST("/login", r.LoginLimit, r.Auth.HandleLogin)
	api.POST("/auth/password", r.LoginLimit, r.Auth.HandlePasswordSetup)
	api.GET("/public/employees/:id", r.Public.HandleProfile)
	api.GET("/qrcode", r.Public.HandleQRCode)
	api.GET("/vcard", r.Public.HandleVCard)
	api.GET("/csv-template", r.Public.HandleCSVTemplate)

	// Authenticated endpoints
	authed := api.Group("", r.Session)
	authed.POST("/logout", r.Auth.HandleLogout)
	authed.GET("/me", r.Auth.HandleMe)

	admins := authed.Group("/admin/users")
	admins.GET("", r.AdminUsers.HandleList)
	admins.POST("", r.AdminUsers.HandleCreate)
	admins.POST("/bulk", r.AdminUsers.HandleBulk)
	admins.PUT("/:id/role", r.AdminUsers.HandleChangeRole)
	admins.PUT("/:id/status", r.AdminUsers.HandleChangeStatus)
	admins.DELETE("/:id", r.AdminUsers.HandleDelete)

	employees := authed.Group("/employees")
	employees.GET("", r.Employees.HandleList)
	employees.POST("", r.Employees.HandleCreate)
	employees.GET("/:id", r.Employees.HandleGet)
	employees.PUT("/:id", r.Employees.HandleUpdate)
	employees.DELETE("/:id", r.Employees.HandleDelete)
	employees.PUT("/:id/status", r.Employees.HandleSetStatus)
	employees.GET("/:id/links", r.Employees.HandleListLinks)
	employees.POST("/:id/links", r.Employees.HandleCreateLink)
	employees.PUT("/:id/links/:link_id", r.Employees.HandleUpdateLink)
	employees.DELETE("/:id/links/:link_id", r.Employees.HandleDeleteLink)

	authed.POST("/import/csv", r.Files.HandleImportCSV)
	authed.POST("/upload", r.Files.HandleUpload)
}
