package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) listTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.List())
}
