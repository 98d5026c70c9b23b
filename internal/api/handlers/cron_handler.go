package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/nsvirk/moneybotscharts/pkg/utils/response"
)

// RefreshSnapshotsResponseData is the response data for the RefreshSnapshots endpoint
type RefreshSnapshotsResponseData struct {
	Kept   int    `json:"kept"`
	Errors string `json:"errors,omitempty"`
}

type CronHandler struct {
	SnapshotService SnapshotProvider
}

func NewCronHandler(snapshotService SnapshotProvider) *CronHandler {
	return &CronHandler{SnapshotService: snapshotService}
}

// RefreshSnapshots runs the snapshot refresh job now
func (h *CronHandler) RefreshSnapshots(c echo.Context) error {
	kept, err := h.SnapshotService.RefreshSnapshots(c.Request().Context())
	data := RefreshSnapshotsResponseData{Kept: kept}
	if err != nil {
		if kept == 0 {
			return errorResponse(c, err)
		}
		data.Errors = err.Error()
	}
	return response.SuccessResponse(c, data)
}
