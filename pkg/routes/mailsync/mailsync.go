package mailsync

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/mailsync"
)

// Register registers mail sync routes
func Register(g *echo.Group) {
	g.POST("/run", Run)
}

// Run triggers a mail sync pass and returns its summary
func Run(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, syncer, err := ectoinject.GetContext[*mailsync.Syncer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get syncer")
	}

	result, err := syncer.Run(ctx)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "mail sync failed: %s", err.Error())
	}

	return c.JSON(http.StatusOK, result)
}
