package consultation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/consultorio/clinicdb/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/consultations", h.ListByPatient)
	api.GET("/consultations/:id", h.GetConsultation)
	api.GET("/reports/daily", h.DailyReport)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	pid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Consultation{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithNext(c))
}

func (h *Handler) GetConsultation(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.GetConsultation(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DailyReport(c echo.Context) error {
	counts, err := h.svc.DailyCounts(c.Request().Context(), c.QueryParam("from"), c.QueryParam("to"))
	if errors.Is(err, ErrInvalidRange) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	total := 0
	for _, dc := range counts {
		total += dc.Count
	}
	if counts == nil {
		counts = []DailyCount{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"days":  counts,
		"total": total,
	})
}
