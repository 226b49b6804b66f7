package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investtrack/internal/services"
)

// EventHandler handles event requests.
type EventHandler struct {
	eventService services.EventServicer
	auditService services.AuditServicer
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService services.EventServicer, auditService services.AuditServicer) *EventHandler {
	return &EventHandler{eventService: eventService, auditService: auditService}
}

// CreateEvent schedules an event with a member
// @Summary     Create an event
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body services.EventInput true "Event"
// @Success     201 {object} Response{data=models.Event}
// @Failure     400 {object} ErrorResponse "Invalid input or member outside firm"
// @Router      /events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req services.EventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	event, err := h.eventService.CreateEvent(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "CREATE_EVENT", "event", event.ID, c.ClientIP(),
		map[string]any{"firm_id": event.FirmID, "member_id": event.MemberID})
	respond(c, http.StatusCreated, event, "Event created")
}

// ListEvents lists events by start date
// @Summary     List events
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       firmId   query string false "Firm ID"
// @Param       memberId query string false "Member ID"
// @Param       mode     query string false "Virtual or Physical"
// @Param       nextStep query string false "Next step"
// @Param       page     query int    false "Page"
// @Param       perPage  query int    false "Items per page"
// @Success     200 {object} Response{data=pagination.PageResponse[models.Event]}
// @Router      /events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	filter := services.EventFilter{
		FirmID:   c.Query("firmId"),
		MemberID: c.Query("memberId"),
		Mode:     c.Query("mode"),
		NextStep: c.Query("nextStep"),
	}
	result, err := h.eventService.ListEvents(c.Request.Context(), filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "")
}

// GetEvent returns one event
// @Summary     Get an event
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Event ID"
// @Success     200 {object} Response{data=models.Event}
// @Failure     404 {object} ErrorResponse "Event not found"
// @Router      /events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	event, err := h.eventService.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, event, "")
}

// UpdateEvent applies a partial update
// @Summary     Update an event
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Event ID"
// @Param       request body services.EventUpdate true "Fields to change"
// @Success     200 {object} Response{data=models.Event}
// @Router      /events/{id} [put]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
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
	var req services.EventUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	event, err := h.eventService.UpdateEvent(c.Request.Context(), id, req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "UPDATE_EVENT", "event", event.ID, c.ClientIP(), nil)
	respond(c, http.StatusOK, event, "Event updated")
}

// DeleteEvent removes an event
// @Summary     Delete an event
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Event ID"
// @Success     200 {object} Response{data=models.Event}
// @Router      /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
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
	event, err := h.eventService.DeleteEvent(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "DELETE_EVENT", "event", event.ID, c.ClientIP(), nil)
	respond(c, http.StatusOK, event, "Event deleted")
}
