package settings

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	settingssvc "github.com/Ramsey-B/clover/internal/services/settings"
	"github.com/Ramsey-B/clover/pkg/models"
)

var validate = validator.New()

// Register registers settings routes
func Register(g *echo.Group) {
	g.GET("/keywords", GetKeywords)
	g.PUT("/keywords", UpdateKeywords)
}

// GetKeywords returns the current classification keyword lists
func GetKeywords(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, svc, err := ectoinject.GetContext[*settingssvc.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get service")
	}

	current, err := svc.Get(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.KeywordsResponse{
		ApprovalKeywords:  current.ApprovalKeywords,
		RejectionKeywords: current.RejectionKeywords,
	})
}

// UpdateKeywords replaces both keyword lists
func UpdateKeywords(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.UpdateKeywordsRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*settingssvc.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get service")
	}

	if err := svc.UpdateKeywords(ctx, req.ApprovalKeywords, req.RejectionKeywords); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.KeywordsResponse{
		ApprovalKeywords:  req.ApprovalKeywords,
		RejectionKeywords: req.RejectionKeywords,
	})
}
