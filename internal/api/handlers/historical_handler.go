package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/moneybotscharts/internal/models"
	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/internal/saver"
	"github.com/nsvirk/moneybotscharts/internal/service"
	"github.com/nsvirk/moneybotscharts/pkg/utils/response"
)

// HistoricalProvider serves bar series
type HistoricalProvider interface {
	GetHistorical(ctx context.Context, params models.HistoricalParams) (historical.Series, error)
	GetTimeframes() []service.Timeframe
}

// HistoricalHandler is the handler for historical bars
type HistoricalHandler struct {
	HistoricalService HistoricalProvider
}

// NewHistoricalHandler creates a new historical handler
func NewHistoricalHandler(historicalService HistoricalProvider) *HistoricalHandler {
	return &HistoricalHandler{HistoricalService: historicalService}
}

// GetTimeframes returns the supported intervals
func (h *HistoricalHandler) GetTimeframes(c echo.Context) error {
	return response.SuccessResponse(c, h.HistoricalService.GetTimeframes())
}

// GetHistorical returns the bars of `symbol`. With `format` set to csv or
// parquet the bars are sent as a file instead of the json envelope.
func (h *HistoricalHandler) GetHistorical(c echo.Context) error {
	var params models.HistoricalParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &params); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid query parameters")
	}
	if strings.TrimSpace(params.Symbol) == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`symbol` is required")
	}
	if params.Segment == "" {
		params.Segment = "NSE"
	}

	var fileSaver saver.BarSaver
	if format := c.QueryParam("format"); format != "" && format != "json" {
		s, err := saver.New(format)
		if err != nil {
			return errorResponse(c, err)
		}
		fileSaver = s
	}

	series, err := h.HistoricalService.GetHistorical(c.Request().Context(), params)
	if err != nil {
		return errorResponse(c, err)
	}

	if fileSaver == nil {
		return response.SuccessResponse(c, series)
	}

	var buf bytes.Buffer
	if err := fileSaver.Write(&buf, series.Bars); err != nil {
		return errorResponse(c, err)
	}
	return response.AttachmentResponse(c, fileSaver.ContentType(), saver.FileName(series, fileSaver), buf.Bytes())
}
