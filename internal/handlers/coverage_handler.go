package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investtrack/internal/services"
)

// CoverageHandler handles quarterly coverage requests scoped to a broker.
type CoverageHandler struct {
	coverageService services.CoverageServicer
	auditService    services.AuditServicer
}

// NewCoverageHandler creates a new CoverageHandler.
func NewCoverageHandler(coverageService services.CoverageServicer, auditService services.AuditServicer) *CoverageHandler {
	return &CoverageHandler{coverageService: coverageService, auditService: auditService}
}

// CreateCoverage handles coverage creation
// @Summary     Create a coverage
// @Description Accepts JSON, or multipart with a "data" JSON field and an optional "coverage" document.
// @Tags        coverages
// @Accept      json,mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       brokerId path     string true  "Broker firm ID"
// @Param       data     formData string false "CoverageInput as JSON"
// @Param       coverage formData file   false "Coverage document (also accepted as \"file\")"
// @Success     201 {object} Response{data=models.Coverage}
// @Failure     400 {object} ErrorResponse "Invalid input or not a broker"
// @Failure     409 {object} ErrorResponse "Period already covered"
// @Router      /coverages/{brokerId} [post]
func (h *CoverageHandler) CreateCoverage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	brokerID, err := parsePathID(c, "brokerId")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req services.CoverageInput
	if err := bindBody(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	upload, err := firstUpload(c, "coverage", "file")
	if err != nil {
		respondWithError(c, err)
		return
	}

	coverage, err := h.coverageService.CreateCoverage(c.Request.Context(), brokerID, req, upload)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "CREATE_COVERAGE", "coverage", coverage.ID, c.ClientIP(),
		map[string]any{"firm_id": brokerID, "fiscal_year": coverage.FiscalYear, "quarter": coverage.Quarter})
	respond(c, http.StatusCreated, coverage, "Coverage created")
}

// ListCoverages lists a broker's coverages, newest period first
// @Summary     List coverages
// @Tags        coverages
// @Produce     json
// @Security    BearerAuth
// @Param       brokerId path  string true  "Broker firm ID"
// @Param       page     query int    false "Page"
// @Param       perPage  query int    false "Items per page"
// @Success     200 {object} Response{data=pagination.PageResponse[models.Coverage]}
// @Router      /coverages/{brokerId} [get]
func (h *CoverageHandler) ListCoverages(c *gin.Context) {
	brokerID, err := parsePathID(c, "brokerId")
	if err != nil {
		respondWithError(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	result, err := h.coverageService.ListCoverages(c.Request.Context(), brokerID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "")
}

// GetCoverage returns one coverage
// @Summary     Get a coverage
// @Tags        coverages
// @Produce     json
// @Security    BearerAuth
// @Param       brokerId path string true "Broker firm ID"
// @Param       id       path string true "Coverage ID"
// @Success     200 {object} Response{data=models.Coverage}
// @Failure     404 {object} ErrorResponse "Coverage not found"
// @Router      /coverages/{brokerId}/{id} [get]
func (h *CoverageHandler) GetCoverage(c *gin.Context) {
	brokerID, err := parsePathID(c, "brokerId")
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	coverage, err := h.coverageService.GetCoverage(c.Request.Context(), brokerID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, coverage, "")
}

// UpdateCoverage applies a partial update
// @Summary     Update a coverage
// @Tags        coverages
// @Accept      json,mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       brokerId path     string true  "Broker firm ID"
// @Param       id       path     string true  "Coverage ID"
// @Param       data     formData string false "CoverageUpdate as JSON"
// @Param       coverage formData file   false "Replacement document"
// @Success     200 {object} Response{data=models.Coverage}
// @Failure     409 {object} ErrorResponse "Period already covered"
// @Router      /coverages/{brokerId}/{id} [put]
func (h *CoverageHandler) UpdateCoverage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	brokerID, err := parsePathID(c, "brokerId")
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req services.CoverageUpdate
	if err := bindBody(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	upload, err := firstUpload(c, "coverage", "file")
	if err != nil {
		respondWithError(c, err)
		return
	}

	coverage, err := h.coverageService.UpdateCoverage(c.Request.Context(), brokerID, id, req, upload)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "UPDATE_COVERAGE", "coverage", coverage.ID, c.ClientIP(), nil)
	respond(c, http.StatusOK, coverage, "Coverage updated")
}

// DeleteCoverage removes a coverage and its document
// @Summary     Delete a coverage
// @Tags        coverages
// @Produce     json
// @Security    BearerAuth
// @Param       brokerId path string true "Broker firm ID"
// @Param       id       path string true "Coverage ID"
// @Success     200 {object} Response{data=models.Coverage}
// @Failure     404 {object} ErrorResponse "Coverage not found"
// @Router      /coverages/{brokerId}/{id} [delete]
func (h *CoverageHandler) DeleteCoverage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	brokerID, err := parsePathID(c, "brokerId")
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	coverage, err := h.coverageService.DeleteCoverage(c.Request.Context(), brokerID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "DELETE_COVERAGE", "coverage", coverage.ID, c.ClientIP(), nil)
	respond(c, http.StatusOK, coverage, "Coverage deleted")
}
