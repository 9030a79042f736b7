package relationship

import (
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/relationship"
	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/relationships"
)

var validate = validator.New()

// Register registers relationship routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.DELETE("/:id", Delete)
	g.GET("/:entityType/:id", List)
	g.GET("/:entityType/:id/loaded", Loaded)
}

// Create links two entities
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if !models.IsValidEntityType(req.EntityTypeA) || !models.IsValidEntityType(req.EntityTypeB) {
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown entity type")
	}

	ctx, repo, err := ectoinject.GetContext[*relationship.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	edge, err := repo.Create(ctx, req.EntityTypeA, req.EntityIDA, req.EntityTypeB, req.EntityIDB, appctx.GetUserID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, edge)
}

// Delete unlinks two entities by edge id
func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*relationship.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// List returns the edges touching an entity
func List(c echo.Context) error {
	ctx := c.Request().Context()

	entityType := models.EntityType(c.Param("entityType"))
	id := c.Param("id")

	if !models.IsValidEntityType(entityType) {
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown entity type")
	}

	ctx, repo, err := ectoinject.GetContext[*relationship.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	edges, err := repo.Query(ctx, entityType, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.RelationshipListResponse{
		Items:      edges,
		TotalCount: len(edges),
	})
}

// Loaded returns the hydrated linked and available entities for an entity.
// The kinds query param narrows which entity kinds are loaded.
func Loaded(c echo.Context) error {
	ctx := c.Request().Context()

	entityType := models.EntityType(c.Param("entityType"))
	id := c.Param("id")

	if !models.IsValidEntityType(entityType) {
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown entity type")
	}

	var kinds []models.EntityType
	if raw := c.QueryParam("kinds"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			kind := models.EntityType(strings.TrimSpace(part))
			if !models.IsValidEntityType(kind) {
				return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown entity kind: %s", kind)
			}
			kinds = append(kinds, kind)
		}
	} else {
		kinds = models.LinkableEntityTypes
	}

	ctx, loader, err := ectoinject.GetContext[*relationships.Loader](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get loader")
	}

	loaded, err := loader.Load(ctx, entityType, id, kinds, nil)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loaded)
}
