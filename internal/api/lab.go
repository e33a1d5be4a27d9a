package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kamathanirudh/labstack/internal/lab"
	"github.com/kamathanirudh/labstack/internal/store"
	"github.com/kamathanirudh/labstack/internal/template"
	"github.com/kamathanirudh/labstack/pkg/types"
)

func (s *Server) createLab(c echo.Context) error {
	var req types.CreateLabRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	if req.LabType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "labType is required",
		})
	}
	// An omitted TTL falls back to the server default; an explicit 0 is a
	// request for immediate shutdown at boot and passes through unchanged.
	ttl := s.defaultTTL
	if req.TTLMinutes != nil {
		if *req.TTLMinutes < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "ttlMinutes must not be negative",
			})
		}
		ttl = *req.TTLMinutes
	}

	labID, err := s.controller.Create(c.Request().Context(), req.LabType, ttl)
	if err != nil {
		if errors.Is(err, template.ErrUnknownTemplate) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "launch failed: " + err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, types.CreateLabResponse{LabID: labID})
}

func (s *Server) getLabStatus(c echo.Context) error {
	snap, err := s.controller.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "lab not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, types.LabStatusResponse{
		Status:    snap.Status,
		AccessURL: snap.AccessURL,
	})
}

func (s *Server) terminateLab(c echo.Context) error {
	err := s.controller.Terminate(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "lab not found",
			})
		case errors.Is(err, lab.ErrCorruptRecord):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, types.TerminateLabResponse{Acknowledged: true})
}
