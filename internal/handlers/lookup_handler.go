package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"investtrack/internal/csc"
	apperrors "investtrack/internal/errors"
	"investtrack/internal/services"
)

// DashboardHandler serves aggregate counts.
type DashboardHandler struct {
	dashboardService services.DashboardServicer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService services.DashboardServicer) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetDashboard returns the dashboard aggregates
// @Summary     Dashboard
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} Response{data=services.Dashboard}
// @Router      /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.dashboardService.GetDashboard(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, dashboard, "")
}

// CSCHandler serves country, state and city reference data.
type CSCHandler struct {
	dir *csc.Directory
}

// NewCSCHandler creates a new CSCHandler.
func NewCSCHandler(dir *csc.Directory) *CSCHandler {
	return &CSCHandler{dir: dir}
}

func requiredQuery(c *gin.Context, keys ...string) error {
	var fields []apperrors.FieldError
	for _, k := range keys {
		if c.Query(k) == "" {
			fields = append(fields, apperrors.FieldError{Field: k, Message: k + " is required"})
		}
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

// Countries lists every country
// @Summary     List countries
// @Tags        csc
// @Produce     json
// @Success     200 {object} Response{data=[]csc.Country}
// @Router      /csc/countries [get]
func (h *CSCHandler) Countries(c *gin.Context) {
	respond(c, http.StatusOK, h.dir.Countries(), "")
}

// States lists the states of a country
// @Summary     List states
// @Tags        csc
// @Produce     json
// @Param       country query string true "Country name"
// @Success     200 {object} Response{data=[]csc.State}
// @Failure     404 {object} ErrorResponse "Unknown country"
// @Router      /csc/states [get]
func (h *CSCHandler) States(c *gin.Context) {
	if err := requiredQuery(c, "country"); err != nil {
		respondWithError(c, err)
		return
	}
	states, ok := h.dir.States(c.Query("country"))
	if !ok {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrNotFound, "Country not found"))
		return
	}
	respond(c, http.StatusOK, states, "")
}

// Cities lists the cities of a state
// @Summary     List cities
// @Tags        csc
// @Produce     json
// @Param       country query string true "Country name"
// @Param       state   query string true "State name"
// @Success     200 {object} Response{data=[]csc.City}
// @Failure     404 {object} ErrorResponse "Unknown country or state"
// @Router      /csc/cities [get]
func (h *CSCHandler) Cities(c *gin.Context) {
	if err := requiredQuery(c, "country", "state"); err != nil {
		respondWithError(c, err)
		return
	}
	cities, err := h.dir.Cities(c.Query("country"), c.Query("state"))
	switch {
	case errors.Is(err, csc.ErrCountryNotFound):
		respondWithError(c, apperrors.WithMessage(apperrors.ErrNotFound, "Country not found"))
		return
	case errors.Is(err, csc.ErrStateNotFound):
		respondWithError(c, apperrors.WithMessage(apperrors.ErrNotFound, "State not found"))
		return
	case err != nil:
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	respond(c, http.StatusOK, cities, "")
}

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	integrityService services.IntegrityServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(integrityService services.IntegrityServicer) *AdminHandler {
	return &AdminHandler{integrityService: integrityService}
}

// Integrity runs the relationship checks
// @Summary     Check relationship integrity
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} Response{data=services.IntegrityReport}
// @Failure     403 {object} ErrorResponse "Admin only"
// @Router      /admin/integrity [get]
func (h *AdminHandler) Integrity(c *gin.Context) {
	report, err := h.integrityService.Check(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, report, "")
}
