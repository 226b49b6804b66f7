package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investtrack/internal/services"
)

// InteractionHandler handles interaction requests.
type InteractionHandler struct {
	interactionService services.InteractionServicer
	auditService       services.AuditServicer
}

// NewInteractionHandler creates a new InteractionHandler.
func NewInteractionHandler(interactionService services.InteractionServicer, auditService services.AuditServicer) *InteractionHandler {
	return &InteractionHandler{interactionService: interactionService, auditService: auditService}
}

// CreateInteraction records an interaction with a member
// @Summary     Create an interaction
// @Tags        interactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body services.InteractionInput true "Interaction"
// @Success     201 {object} Response{data=models.Interaction}
// @Failure     400 {object} ErrorResponse "Invalid input or firm mismatch"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Router      /interactions [post]
func (h *InteractionHandler) CreateInteraction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req services.InteractionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	interaction, err := h.interactionService.CreateInteraction(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "CREATE_INTERACTION", "interaction", interaction.ID, c.ClientIP(),
		map[string]any{"member_id": interaction.MemberID})
	respond(c, http.StatusCreated, interaction, "Interaction created")
}

// ListInteractions lists interactions, newest first
// @Summary     List interactions
// @Tags        interactions
// @Produce     json
// @Security    BearerAuth
// @Param       firmId   query string false "Firm ID"
// @Param       memberId query string false "Member ID"
// @Param       page     query int    false "Page"
// @Param       perPage  query int    false "Items per page"
// @Success     200 {object} Response{data=pagination.PageResponse[models.Interaction]}
// @Router      /interactions [get]
func (h *InteractionHandler) ListInteractions(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	filter := services.InteractionFilter{FirmID: c.Query("firmId"), MemberID: c.Query("memberId")}
	result, err := h.interactionService.ListInteractions(c.Request.Context(), filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "")
}

// GetInteraction returns one interaction
// @Summary     Get an interaction
// @Tags        interactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Interaction ID"
// @Success     200 {object} Response{data=models.Interaction}
// @Failure     404 {object} ErrorResponse "Interaction not found"
// @Router      /interactions/{id} [get]
func (h *InteractionHandler) GetInteraction(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	interaction, err := h.interactionService.GetInteraction(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, interaction, "")
}

// UpdateInteraction applies a partial update
// @Summary     Update an interaction
// @Tags        interactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                     true "Interaction ID"
// @Param       request body services.InteractionUpdate true "Fields to change"
// @Success     200 {object} Response{data=models.Interaction}
// @Router      /interactions/{id} [put]
func (h *InteractionHandler) UpdateInteraction(c *gin.Context) {
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
	var req services.InteractionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	interaction, err := h.interactionService.UpdateInteraction(c.Request.Context(), id, req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "UPDATE_INTERACTION", "interaction", interaction.ID, c.ClientIP(), nil)
	respond(c, http.StatusOK, interaction, "Interaction updated")
}

// DeleteInteraction removes an interaction
// @Summary     Delete an interaction
// @Tags        interactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Interaction ID"
// @Success     200 {object} Response{data=models.Interaction}
// @Router      /interactions/{id} [delete]
func (h *InteractionHandler) DeleteInteraction(c *gin.Context) {
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
	interaction, err := h.interactionService.DeleteInteraction(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "DELETE_INTERACTION", "interaction", interaction.ID, c.ClientIP(), nil)
	respond(c, http.StatusOK, interaction, "Interaction deleted")
}
