package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investtrack/internal/services"
)

// MemberHandler handles member requests, including transfers.
type MemberHandler struct {
	memberService services.MemberServicer
	auditService  services.AuditServicer
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(memberService services.MemberServicer, auditService services.AuditServicer) *MemberHandler {
	return &MemberHandler{memberService: memberService, auditService: auditService}
}

// CommentRequest replaces a member's comment.
type CommentRequest struct {
	Comment string `json:"comment" binding:"max=2000"`
}

func businessCards(c *gin.Context) (services.BusinessCards, error) {
	var cards services.BusinessCards
	var err error
	if cards.Front, err = formUpload(c, "businessCardFront"); err != nil {
		return cards, err
	}
	if cards.Back, err = formUpload(c, "businessCardBack"); err != nil {
		return cards, err
	}
	return cards, nil
}

// CreateMember handles member creation
// @Summary     Create a member
// @Description Accepts JSON, or multipart with a "data" JSON field plus businessCardFront and businessCardBack images. The firm comes from firmId or firm_id.
// @Tags        members
// @Accept      json,mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       firmId            query    string false "Owning firm ID"
// @Param       data              formData string false "MemberInput as JSON"
// @Param       businessCardFront formData file   false "Business card front"
// @Param       businessCardBack  formData file   false "Business card back"
// @Success     201 {object} Response{data=models.Member}
// @Failure     400 {object} ErrorResponse "Invalid input or inactive firm"
// @Failure     404 {object} ErrorResponse "Firm not found"
// @Failure     409 {object} ErrorResponse "Duplicate email or mobile"
// @Router      /members [post]
func (h *MemberHandler) CreateMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req services.MemberInput
	if err := bindBody(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	if firmID := c.Query("firmId"); firmID != "" {
		req.FirmID = firmID
	}
	cards, err := businessCards(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	member, err := h.memberService.CreateMember(c.Request.Context(), req, cards)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "CREATE_MEMBER", "member", member.ID, c.ClientIP(),
		map[string]any{"firm_id": member.FirmID})
	respond(c, http.StatusCreated, member, "Member created")
}

// ListMembers handles member listing
// @Summary     List members
// @Tags        members
// @Produce     json
// @Security    BearerAuth
// @Param       memberType  query string true  "broker or investor"
// @Param       firmId      query string false "Firm ID"
// @Param       name        query string false "Name contains"
// @Param       designation query string false "Designation contains"
// @Param       isGift      query bool   false "Gift flag"
// @Param       sectors     query string false "Comma separated sectors"
// @Param       localities  query string false "Comma separated localities"
// @Param       page        query int    false "Page"
// @Param       perPage     query int    false "Items per page"
// @Success     200 {object} Response{data=pagination.PageResponse[models.Member]}
// @Failure     400 {object} ErrorResponse "Missing or invalid memberType"
// @Router      /members [get]
func (h *MemberHandler) ListMembers(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	isGift, err := queryBool(c, "isGift")
	if err != nil {
		respondWithError(c, err)
		return
	}
	filter := services.MemberFilter{
		MemberType:  c.Query("memberType"),
		FirmID:      c.Query("firmId"),
		Name:        c.Query("name"),
		Designation: c.Query("designation"),
		IsGift:      isGift,
		Sectors:     queryList(c, "sectors"),
		Localities:  queryList(c, "localities"),
	}

	result, err := h.memberService.ListMembers(c.Request.Context(), filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "")
}

// GetMember returns a member with its firm and interactions
// @Summary     Get a member
// @Tags        members
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Member ID"
// @Success     200 {object} Response{data=models.Member}
// @Failure     404 {object} ErrorResponse "Member not found"
// @Router      /members/{id} [get]
func (h *MemberHandler) GetMember(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	member, err := h.memberService.GetMember(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, member, "")
}

// UpdateMember applies a partial update
// @Summary     Update a member
// @Description Accepts JSON, or multipart with a "data" JSON field plus replacement business card images.
// @Tags        members
// @Accept      json,mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       id                path     string true  "Member ID"
// @Param       data              formData string false "MemberUpdate as JSON"
// @Param       businessCardFront formData file   false "Business card front"
// @Param       businessCardBack  formData file   false "Business card back"
// @Success     200 {object} Response{data=models.Member}
// @Failure     400 {object} ErrorResponse "Type change or invalid input"
// @Failure     409 {object} ErrorResponse "Duplicate key or stale version"
// @Router      /members/{id} [put]
func (h *MemberHandler) UpdateMember(c *gin.Context) {
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
	var req services.MemberUpdate
	if err := bindBody(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	cards, err := businessCards(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	member, err := h.memberService.UpdateMember(c.Request.Context(), id, req, cards)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "UPDATE_MEMBER", "member", member.ID, c.ClientIP(), nil)
	respond(c, http.StatusOK, member, "Member updated")
}

// UpdateComment replaces a member's comment
// @Summary     Update a member's comment
// @Tags        members
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string         true "Member ID"
// @Param       request body CommentRequest true "Comment"
// @Success     200 {object} Response{data=models.Member}
// @Router      /members/{id}/remark [post]
func (h *MemberHandler) UpdateComment(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	member, err := h.memberService.UpdateComment(c.Request.Context(), id, req.Comment)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, member, "Comment updated")
}

// DeleteMember removes a member with its interactions and business cards
// @Summary     Delete a member
// @Tags        members
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Member ID"
// @Success     200 {object} Response{data=models.Member}
// @Failure     404 {object} ErrorResponse "Member not found"
// @Router      /members/{id} [delete]
func (h *MemberHandler) DeleteMember(c *gin.Context) {
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
	member, err := h.memberService.DeleteMember(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "DELETE_MEMBER", "member", member.ID, c.ClientIP(),
		map[string]any{"firm_id": member.FirmID})
	respond(c, http.StatusOK, member, "Member deleted")
}

// TransferMember moves a member to another firm
// @Summary     Transfer a member
// @Description Creates the member under the target firm, re-points interactions and attachments and removes the old record.
// @Tags        members
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Member ID"
// @Param       request body services.TransferInput true "Target firm and overrides"
// @Success     200 {object} Response{data=models.Member}
// @Failure     400 {object} ErrorResponse "Same firm, inactive target or missing fields"
// @Failure     404 {object} ErrorResponse "Member or firm not found"
// @Router      /members/{id}/move [put]
func (h *MemberHandler) TransferMember(c *gin.Context) {
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
	var req services.TransferInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	member, err := h.memberService.TransferMember(c.Request.Context(), id, req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), userID, "TRANSFER_MEMBER", "member", member.ID, c.ClientIP(),
		map[string]any{"from_member_id": id, "firm_id": member.FirmID})
	respond(c, http.StatusOK, member, "Member transferred")
}
