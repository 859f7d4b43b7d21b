// Package router wires handlers and middleware into the echo instance.
package router

import (
	"net/http"

	"furniture-service/internal/handler"
	"furniture-service/internal/middleware"
	"furniture-service/pkg/config"
	"furniture-service/pkg/jwtutil"
	"furniture-service/pkg/logger"
	"furniture-service/pkg/realtime"
	"furniture-service/pkg/storage"
	"furniture-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the routes need
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	JWT    *jwtutil.JWTUtil
	Store  storage.Store
	Hub    *realtime.Hub
	Logger *zap.Logger
}

// New builds the echo instance with every route registered
func New(d Deps) *echo.Echo {
	log := d.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	handler.ExposeErrorDetails(d.Config.Server.IsDevelopment())

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     []string{d.Config.Server.FrontendURL},
		AllowCredentials: true,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middleware.TokenHeader,
			logger.RequestIDKey,
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	auth := middleware.JWTAuthMiddleware(d.JWT, d.DB)

	var products handler.ProductNotifier
	var designs handler.DesignNotifier
	if d.Hub != nil {
		products, designs = d.Hub, d.Hub
	}

	// Public routes
	health := handler.NewHealthHandler(d.DB)
	e.GET("/api/health", health.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))
	if local, ok := d.Store.(*storage.LocalStore); ok {
		e.Static(storage.PublicPrefix, local.Dir())
	}
	if d.Hub != nil {
		e.GET("/ws", d.Hub.Handler(realtime.NewUpgrader(d.Config.Server.FrontendURL)))
	}

	api := e.Group("/api")

	// Authentication
	authH := handler.NewAuthHandler(d.DB, d.JWT, d.Config.Server)
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authH.Register)
	authGroup.POST("/login", authH.Login)
	authGroup.POST("/create-admin", authH.CreateAdmin)
	authGroup.GET("/profile", authH.GetProfile, auth)
	authGroup.PUT("/profile", authH.UpdateProfile, auth)

	// Catalog: reads are public, writes are admin only
	productH := handler.NewProductHandler(d.DB, d.Store, products, d.Config.Upload.MaxFileSize)
	productGroup := api.Group("/products")
	productGroup.GET("", productH.ListProducts)
	productGroup.GET("/:id", productH.GetProduct)
	productGroup.POST("", productH.CreateProduct, auth, middleware.AdminOnly())
	productGroup.PUT("/:id", productH.UpdateProduct, auth, middleware.AdminOnly())
	productGroup.DELETE("/:id", productH.DeleteProduct, auth, middleware.AdminOnly())

	// Room designs - owner only
	designH := handler.NewRoomDesignHandler(d.DB, designs)
	designGroup := api.Group("/room-designs", auth)
	designGroup.GET("", designH.ListDesigns)
	designGroup.POST("", designH.CreateDesign)
	designGroup.GET("/:id", designH.GetDesign)
	designGroup.PUT("/:id", designH.UpdateDesign)
	designGroup.DELETE("/:id", designH.DeleteDesign)
	designGroup.POST("/:id/items", designH.AddItem)
	designGroup.PATCH("/:id/items/:itemId", designH.PatchItem)
	designGroup.DELETE("/:id/items/:itemId", designH.DeleteItem)
	designGroup.PUT("/:id/walls", designH.SetWallColor)
	designGroup.GET("/:id/walls", designH.WallOpacities)
	designGroup.PUT("/:id/floor", designH.SetFloorColor)

	return e
}
