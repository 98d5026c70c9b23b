package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/moneybotscharts/internal/models"
	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
	"github.com/nsvirk/moneybotscharts/internal/service"
	"github.com/nsvirk/moneybotscharts/pkg/utils/response"
)

// InstrumentProvider looks up and refreshes instrument masters
type InstrumentProvider interface {
	SearchInstruments(params models.SearchInstrumentsParams) ([]directory.Instrument, error)
	ResolveInstrument(params models.SearchInstrumentsParams) (directory.Instrument, bool, error)
	UpdateInstruments(ctx context.Context, force bool) ([]service.UpdateInstrumentsResult, error)
}

type InstrumentHandler struct {
	InstrumentService InstrumentProvider
}

func NewInstrumentHandler(instrumentService InstrumentProvider) *InstrumentHandler {
	return &InstrumentHandler{InstrumentService: instrumentService}
}

// bindSearchParams returns the search parameters, or a message for the client
func bindSearchParams(c echo.Context) (models.SearchInstrumentsParams, string) {
	var params models.SearchInstrumentsParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &params); err != nil {
		return params, "Invalid query parameters"
	}
	if params.Query == "" {
		return params, "`q` is required"
	}
	if params.Segment == "" {
		params.Segment = string(directory.SegmentNSE)
	}
	return params, ""
}

// SearchInstruments returns every instrument matching `q` in `segment`
func (h *InstrumentHandler) SearchInstruments(c echo.Context) error {
	params, msg := bindSearchParams(c)
	if msg != "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, msg)
	}
	instruments, err := h.InstrumentService.SearchInstruments(params)
	if err != nil {
		return errorResponse(c, err)
	}
	return response.SuccessResponse(c, instruments)
}

// ResolveInstrument returns the first instrument matching `q` in `segment`
func (h *InstrumentHandler) ResolveInstrument(c echo.Context) error {
	params, msg := bindSearchParams(c)
	if msg != "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, msg)
	}
	instrument, ok, err := h.InstrumentService.ResolveInstrument(params)
	if err != nil {
		return errorResponse(c, err)
	}
	if !ok {
		return response.ErrorResponse(c, http.StatusNotFound, response.InputException, "No instrument matches `"+params.Query+"`")
	}
	return response.SuccessResponse(c, instrument)
}

// UpdateInstruments downloads the masters now. `force=false` honours the daily marker.
func (h *InstrumentHandler) UpdateInstruments(c echo.Context) error {
	force := true
	if v := c.QueryParam("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`force` must be true or false")
		}
		force = b
	}

	results, err := h.InstrumentService.UpdateInstruments(c.Request().Context(), force)
	if err != nil && len(results) == 0 {
		return errorResponse(c, err)
	}
	return response.SuccessResponse(c, results)
}
