package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"canteen/internal/middleware"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ErrorResponse は全APIのエラー形 {"error": "...", "kind": "..."}
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			logError(c, err)
		}
		msg := he.Message
		if he.Status == http.StatusInternalServerError {
			msg = "internal error"
		}
		return c.JSON(he.Status, ErrorResponse{Error: msg, Kind: string(he.Kind)})
	}

	//500（詳細は返さない）
	logError(c, err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Kind: string(usecase.KindInternal)})
}

func logError(c echo.Context, err error) {
	slog.Default().ErrorContext(c.Request().Context(), "request failed",
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"method", c.Request().Method,
		"uri", c.Request().RequestURI,
		"error", err.Error(),
	)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(usecase.KindValidation)})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: string(usecase.KindUnauthorized)})
}

// Bind して validate タグを検査する
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(req)
}

func currentActor(c echo.Context) (usecase.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return usecase.Actor{}, false
	}
	return usecase.Actor{UserID: id, Role: middleware.Role(c)}, true
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page/limit の共通パース。空なら0（usecase側で既定値）
func pageQuery(c echo.Context) (int, int, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}
