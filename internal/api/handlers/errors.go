// Package handlers contains the handlers for the API
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/internal/nse/snapshot"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/nsvirk/moneybotscharts/internal/saver"
	"github.com/nsvirk/moneybotscharts/internal/service"
	"github.com/nsvirk/moneybotscharts/pkg/utils/response"
)

// errorResponse maps service errors to API error responses
func errorResponse(c echo.Context, err error) error {
	var (
		transportErr *transport.TransportError
		fetchFailure *directory.FetchFailure
	)
	switch {
	case errors.Is(err, directory.ErrInvalidSegment),
		errors.Is(err, historical.ErrInvalidInterval),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, saver.ErrUnsupportedFormat):
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, err.Error())
	case errors.Is(err, directory.ErrDirectoryNotLoaded):
		return response.ErrorResponse(c, http.StatusServiceUnavailable, response.NotLoadedException, err.Error())
	case errors.As(err, &transportErr), errors.As(err, &fetchFailure),
		errors.Is(err, snapshot.ErrMalformedResponse), errors.Is(err, historical.ErrMalformedResponse):
		return response.ErrorResponse(c, http.StatusBadGateway, response.NetworkException, err.Error())
	default:
		return response.ErrorResponse(c, http.StatusInternalServerError, response.ServerException, err.Error())
	}
}
