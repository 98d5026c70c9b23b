package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/moneybotscharts/internal/nse/snapshot"
	"github.com/nsvirk/moneybotscharts/pkg/utils/response"
)

// SnapshotProvider serves index snapshots
type SnapshotProvider interface {
	GetIndexSnapshot(ctx context.Context, group string) (snapshot.Table, error)
	GetAllIndicesSnapshot(ctx context.Context) (snapshot.Table, error)
	RefreshSnapshots(ctx context.Context) (int, error)
	Groups() []string
}

// IndicesHandler is the handler for the index snapshots
type IndicesHandler struct {
	SnapshotService SnapshotProvider
}

func NewIndicesHandler(snapshotService SnapshotProvider) *IndicesHandler {
	return &IndicesHandler{SnapshotService: snapshotService}
}

// GetIndexNames returns the configured index groups
func (h *IndicesHandler) GetIndexNames(c echo.Context) error {
	return response.SuccessResponse(c, h.SnapshotService.Groups())
}

// GetIndexSnapshot returns the constituents snapshot of `group`
func (h *IndicesHandler) GetIndexSnapshot(c echo.Context) error {
	group := strings.TrimSpace(c.QueryParam("group"))
	if group == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "No `group` provided")
	}

	table, err := h.SnapshotService.GetIndexSnapshot(c.Request().Context(), group)
	if err != nil {
		return errorResponse(c, err)
	}
	return response.SuccessResponse(c, table)
}

// GetAllIndicesSnapshot returns the all-indices snapshot
func (h *IndicesHandler) GetAllIndicesSnapshot(c echo.Context) error {
	table, err := h.SnapshotService.GetAllIndicesSnapshot(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return response.SuccessResponse(c, table)
}
