package handler

import (
	"net/http"
	"strconv"

	"github.com/astralibs/lending-service/lending/internal/errs"
	"github.com/astralibs/lending-service/lending/internal/model"
	"github.com/astralibs/lending-service/pkg/auth"
	mw "github.com/astralibs/lending-service/pkg/middleware"
	"github.com/astralibs/lending-service/pkg/validate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Handler struct {
	loanSvc LoanService
	log     *zap.Logger
}

func New(loanSvc LoanService, log *zap.Logger) *Handler {
	return &Handler{
		loanSvc: loanSvc,
		log:     log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", mw.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(mw.RequestLoggerConfig()),
		middleware.RequestID(),
		mw.NewRateLimiter(apiRPS),
		mw.AuthContext,
	)

	api.GET("/loans", h.ListMine)
	api.GET("/loans/all", h.ListAll, mw.RequireRole(auth.RoleLibrarian))
	api.GET("/loans/:loanId", h.GetLoan, mw.RequireRole(auth.RoleLibrarian))
	api.POST("/loans/checkout/:bookId", h.Checkout, mw.RequireRole(auth.RoleCustomer))
	api.PUT("/loans/:loanId/return", h.Return, mw.RequireRole(auth.RoleLibrarian))
	api.DELETE("/loans/:loanId", h.DeleteLoan, mw.RequireRole(auth.RoleLibrarian))
	api.GET("/books/:bookId/available", h.IsAvailable)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) Checkout(c echo.Context) error {
	bookID, err := strconv.Atoi(c.Param("bookId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bookId")
	}
	id, err := auth.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	req := model.CheckoutRequest{
		BookID:   bookID,
		Username: id.Username,
		Email:    id.Email,
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	loan, err := h.loanSvc.Checkout(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) Return(c echo.Context) error {
	loanID, err := strconv.Atoi(c.Param("loanId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid loanId")
	}

	loan, err := h.loanSvc.Return(c.Request().Context(), loanID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) ListMine(c echo.Context) error {
	id, err := auth.FromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	loans, err := h.loanSvc.ListMine(c.Request().Context(), id.Username)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) ListAll(c echo.Context) error {
	loans, err := h.loanSvc.ListAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) GetLoan(c echo.Context) error {
	loanID, err := strconv.Atoi(c.Param("loanId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid loanId")
	}

	loan, err := h.loanSvc.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) DeleteLoan(c echo.Context) error {
	loanID, err := strconv.Atoi(c.Param("loanId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid loanId")
	}

	if err := h.loanSvc.DeleteLoan(c.Request().Context(), loanID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) IsAvailable(c echo.Context) error {
	bookID, err := strconv.Atoi(c.Param("bookId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bookId")
	}

	available, err := h.loanSvc.IsAvailable(c.Request().Context(), bookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, model.AvailableResponse{Available: available})
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
