package reimbursement

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	reimbrepo "github.com/Ramsey-B/clover/internal/repositories/reimbursement"
	reimbservice "github.com/Ramsey-B/clover/internal/services/reimbursement"
	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
)

var validate = validator.New()

// Register registers reimbursement routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.DELETE("/:id", Delete)
	g.POST("/:id/send", Send)
	g.GET("/:id/relationships", Relationships)
}

// List returns reimbursement requests, paginated
func List(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*reimbrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ReimbursementListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Create creates a new reimbursement request
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateReimbursementRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*reimbrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	created, err := repo.Create(ctx, req, appctx.GetUserID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// Get returns a reimbursement request by id
func Get(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*reimbrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	req, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "reimbursement request not found")
	}

	return c.JSON(http.StatusOK, req)
}

// Delete soft deletes a reimbursement request
func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*reimbrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Send validates requirements and emails the approval request
func Send(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	var req models.SendReimbursementRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*reimbservice.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get service")
	}

	updated, err := svc.Send(ctx, id, req.Recipient, appctx.GetUserID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// Relationships returns the hydrated linked and available entities for a
// request
func Relationships(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, svc, err := ectoinject.GetContext[*reimbservice.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get service")
	}

	loaded, err := svc.Relationships(ctx, id, models.LinkableEntityTypes, nil)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loaded)
}
