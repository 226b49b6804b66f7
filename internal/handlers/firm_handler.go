package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/services"
)

// FirmHandler handles broker and investor firm requests.
type FirmHandler struct {
	firmService  services.FirmServicer
	auditService services.AuditServicer
}

// NewFirmHandler creates a new FirmHandler.
func NewFirmHandler(firmService services.FirmServicer, auditService services.AuditServicer) *FirmHandler {
	return &FirmHandler{firmService: firmService, auditService: auditService}
}

// RemarkRequest replaces a firm's remark.
type RemarkRequest struct {
	Remark string `json:"remark" binding:"max=2000"`
}

// CreateFirm handles firm creation
// @Summary     Create a firm
// @Description The variant comes from "type" in the body or the firmType query parameter.
// @Tags        firms
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       firmType query string             false "broker or investor"
// @Param       request  body  services.FirmInput true  "Firm details"
// @Success     201 {object} Response{data=models.Firm}
// @Failure     400 {object} ErrorResponse "Invalid input or type"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /firms [post]
func (h *FirmHandler) CreateFirm(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req services.FirmInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	if req.Type == "" {
		req.Type = c.Query("firmType")
	}

	firm, err := h.firmService.CreateFirm(c.Request.Context(), userID, req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "CREATE_FIRM", "firm", firm.ID, c.ClientIP(),
		map[string]any{"name": firm.Name, "type": firm.FirmType})
	respond(c, http.StatusCreated, firm, "Firm created")
}

// ListFirms handles firm listing
// @Summary     List firms
// @Tags        firms
// @Produce     json
// @Security    BearerAuth
// @Param       firmType      query string false "broker or investor"
// @Param       name          query string false "Name contains"
// @Param       locationType  query string false "Domestic or Foreign"
// @Param       sectors       query string false "Comma separated sectors"
// @Param       regionalFocus query string false "Comma separated regions"
// @Param       localities    query string false "Comma separated localities"
// @Param       isActive      query bool   false "Active flag"
// @Param       page          query int    false "Page"
// @Param       perPage       query int    false "Items per page"
// @Success     200 {object} Response{data=pagination.PageResponse[models.Firm]}
// @Router      /firms [get]
func (h *FirmHandler) ListFirms(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	isActive, err := queryBool(c, "isActive")
	if err != nil {
		respondWithError(c, err)
		return
	}
	filter := services.FirmFilter{
		FirmType:      c.Query("firmType"),
		Name:          c.Query("name"),
		LocationType:  c.Query("locationType"),
		Sectors:       queryList(c, "sectors"),
		RegionalFocus: queryList(c, "regionalFocus"),
		Localities:    queryList(c, "localities"),
		IsActive:      isActive,
	}

	result, err := h.firmService.ListFirms(c.Request.Context(), filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "")
}

// GetFirm returns a firm with its members, coverages and factsheets
// @Summary     Get a firm
// @Tags        firms
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Firm ID"
// @Success     200 {object} Response{data=models.Firm}
// @Failure     404 {object} ErrorResponse "Firm not found"
// @Router      /firms/{id} [get]
func (h *FirmHandler) GetFirm(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	firm, err := h.firmService.GetFirm(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, firm, "")
}

// UpdateFirm applies a partial update
// @Summary     Update a firm
// @Tags        firms
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Firm ID"
// @Param       request body services.FirmUpdate true "Fields to change"
// @Success     200 {object} Response{data=models.Firm}
// @Failure     409 {object} ErrorResponse "Duplicate name or stale version"
// @Router      /firms/{id} [put]
func (h *FirmHandler) UpdateFirm(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req services.FirmUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	firm, err := h.firmService.UpdateFirm(c.Request.Context(), id, req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "UPDATE_FIRM", "firm", firm.ID, c.ClientIP(), nil)
	respond(c, http.StatusOK, firm, "Firm updated")
}

// DeactivateFirm soft-deletes a firm
// @Summary     Deactivate a firm
// @Description Members, coverages and factsheets stay attached.
// @Tags        firms
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Firm ID"
// @Success     200 {object} Response{data=models.Firm}
// @Failure     404 {object} ErrorResponse "Firm not found"
// @Router      /firms/{id} [delete]
func (h *FirmHandler) DeactivateFirm(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	firm, err := h.firmService.DeactivateFirm(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "DEACTIVATE_FIRM", "firm", firm.ID, c.ClientIP(), nil)
	respond(c, http.StatusOK, firm, "Firm deactivated")
}

// UpdateRemark replaces a firm's remark
// @Summary     Update a firm's remark
// @Tags        firms
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string        true "Firm ID"
// @Param       request body RemarkRequest true "Remark"
// @Success     200 {object} Response{data=models.Firm}
// @Router      /firms/{id}/remark [post]
func (h *FirmHandler) UpdateRemark(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req RemarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	firm, err := h.firmService.UpdateRemark(c.Request.Context(), id, req.Remark)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, firm, "Remark updated")
}

// ListFactsheets lists an investor's fund factsheets
// @Summary     List fund factsheets
// @Tags        firms
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Investor firm ID"
// @Success     200 {object} Response{data=[]models.FundFactsheet}
// @Router      /firms/{id}/sheet [get]
func (h *FirmHandler) ListFactsheets(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	sheets, err := h.firmService.ListFactsheets(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, sheets, "")
}

// UploadFactsheet attaches a fund factsheet to an investor
// @Summary     Upload a fund factsheet
// @Tags        firms
// @Accept      mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       id            path     string true  "Investor firm ID"
// @Param       sheet         formData file   true  "Factsheet document (also accepted as \"file\")"
// @Param       document_date formData string false "Document date (YYYY-MM-DD or RFC 3339)"
// @Success     201 {object} Response{data=models.FundFactsheet}
// @Failure     400 {object} ErrorResponse "Not an investor or no file"
// @Failure     415 {object} ErrorResponse "Unsupported file type"
// @Router      /firms/{id}/sheet [post]
func (h *FirmHandler) UploadFactsheet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	upload, err := firstUpload(c, "sheet", "file")
	if err != nil {
		respondWithError(c, err)
		return
	}
	documentDate, err := parseDate(c.PostForm("document_date"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	sheet, err := h.firmService.UploadFactsheet(c.Request.Context(), id, documentDate, upload)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "UPLOAD_FACTSHEET", "firm", id, c.ClientIP(),
		map[string]any{"file_id": sheet.FileID})
	respond(c, http.StatusCreated, sheet, "Factsheet uploaded")
}

// DeleteFactsheet removes a fund factsheet and its file
// @Summary     Delete a fund factsheet
// @Tags        firms
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string true "Investor firm ID"
// @Param       sheetId path string true "Factsheet or file ID"
// @Success     200 {object} Response{data=models.FundFactsheet}
// @Failure     404 {object} ErrorResponse "Factsheet not found"
// @Router      /firms/{id}/sheet/{sheetId} [delete]
func (h *FirmHandler) DeleteFactsheet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	sheetID, err := parsePathID(c, "sheetId")
	if err != nil {
		respondWithError(c, err)
		return
	}
	sheet, err := h.firmService.DeleteFactsheet(c.Request.Context(), id, sheetID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "DELETE_FACTSHEET", "firm", id, c.ClientIP(),
		map[string]any{"file_id": sheet.FileID})
	respond(c, http.StatusOK, sheet, "Factsheet deleted")
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty input
// yields nil.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.Validation(apperrors.FieldError{Field: "document_date", Message: "document_date must be YYYY-MM-DD or RFC 3339"})
}
