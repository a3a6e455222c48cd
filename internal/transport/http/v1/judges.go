package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListRegistry lists the registered sampler and validator names.
// GET /registry
func (h *Handler) ListRegistry(c echo.Context) error {
	reg := h.service.Registry()
	return c.JSON(http.StatusOK, map[string][]string{
		"samplers":   reg.SamplerNames(),
		"validators": reg.ValidatorNames(),
	})
}

// GetJudge returns a judge definition.
// GET /judge/:id
func (h *Handler) GetJudge(c echo.Context) error {
	judge, err := h.service.Judge(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, judge)
}

// SampleJudge runs the judge's sampler and returns its raw output.
// POST /judge/:id/sample
func (h *Handler) SampleJudge(c echo.Context) error {
	sample, err := h.service.SampleJudge(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sample)
}

// ValidateJudge runs the judge's validator. The body holds the kwargs; its
// "source" key is the text under test.
// POST /judge/:id/validate
func (h *Handler) ValidateJudge(c echo.Context) error {
	kwargs := map[string]any{}
	// Decoded directly so path params do not leak into kwargs.
	if err := c.Echo().JSONSerializer.Deserialize(c, &kwargs); err != nil {
		return badRequest(c, "invalid request body")
	}
	source, _ := kwargs["source"].(string)
	delete(kwargs, "source")

	ok, err := h.service.ValidateJudge(c.Request().Context(), c.Param("id"), source, kwargs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"result": ok})
}

// ListGames lists the game catalog.
// GET /games
func (h *Handler) ListGames(c echo.Context) error {
	games, err := h.service.Games(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"games": games})
}

// ListModels returns the models available for play.
// GET /models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.Models(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"models": models})
}

// GetGame returns one game.
// GET /games/:id
func (h *Handler) GetGame(c echo.Context) error {
	game, err := h.service.Game(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, game)
}
