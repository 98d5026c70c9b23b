// Package api contains the API routes for the Moneybots Charts API
package api

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/nsvirk/moneybotscharts/internal/api/handlers"
	"github.com/nsvirk/moneybotscharts/internal/api/middleware"
	"github.com/nsvirk/moneybotscharts/internal/config"
	"github.com/nsvirk/moneybotscharts/pkg/utils/response"
)

// Services are the services the routes are served by
type Services struct {
	Instruments handlers.InstrumentProvider
	Snapshots   handlers.SnapshotProvider
	Historical  handlers.HistoricalProvider
}

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, cfg *config.Config, services Services) {

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute(cfg))

	auth := middleware.AuthMiddleware(cfg.APIKeyHash)

	// Instrument routes (protected)
	instrumentHandler := handlers.NewInstrumentHandler(services.Instruments)
	instrumentGroup := api.Group("/instruments")
	instrumentGroup.Use(auth)
	instrumentGroup.GET("/search", instrumentHandler.SearchInstruments)
	instrumentGroup.GET("/resolve", instrumentHandler.ResolveInstrument)
	instrumentGroup.POST("/refresh", instrumentHandler.UpdateInstruments)

	// Snapshot routes (protected)
	indicesHandler := handlers.NewIndicesHandler(services.Snapshots)
	cronHandler := handlers.NewCronHandler(services.Snapshots)
	snapshotGroup := api.Group("/snapshot")
	snapshotGroup.Use(auth)
	snapshotGroup.GET("/names", indicesHandler.GetIndexNames)
	snapshotGroup.GET("/index", indicesHandler.GetIndexSnapshot)
	snapshotGroup.GET("/indices", indicesHandler.GetAllIndicesSnapshot)
	snapshotGroup.POST("/refresh", cronHandler.RefreshSnapshots)

	// Historical routes (protected)
	historicalHandler := handlers.NewHistoricalHandler(services.Historical)
	historicalGroup := api.Group("/historical")
	historicalGroup.Use(auth)
	historicalGroup.GET("", historicalHandler.GetHistorical)
	historicalGroup.GET("/timeframes", historicalHandler.GetTimeframes)
}

// indexRoute returns the API name and version
func indexRoute(cfg *config.Config) echo.HandlerFunc {
	message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
	return func(c echo.Context) error {
		return response.SuccessResponse(c, message)
	}
}
