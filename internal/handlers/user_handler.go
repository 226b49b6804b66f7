package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investtrack/internal/models"
	"investtrack/internal/services"
)

// UserHandler serves the caller's profile and admin role changes.
type UserHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer, auditService services.AuditServicer) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

// UpdateProfileRequest is the JSON part of a profile update.
type UpdateProfileRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=100"`
}

// UpdateRoleRequest changes a user's role.
type UpdateRoleRequest struct {
	Role models.Role `json:"role" binding:"required,role"`
}

// Me returns the caller's profile
// @Summary     Get current user
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} Response{data=models.User}
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, user, "")
}

// UpdateMe changes the caller's name and avatar
// @Summary     Update current user
// @Description Accepts JSON, or multipart with a "data" JSON field and an "avatar" image.
// @Tags        users
// @Accept      json,mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       data   formData string false "UpdateProfileRequest as JSON"
// @Param       avatar formData file   false "Avatar image"
// @Success     200 {object} Response{data=models.User}
// @Failure     415 {object} ErrorResponse "Avatar is not an image"
// @Router      /users/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req UpdateProfileRequest
	if err := bindBody(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	avatar, err := formUpload(c, "avatar")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, req.Name, avatar)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, user, "Profile updated")
}

// UpdateRole changes another user's role
// @Summary     Change a user's role
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "User ID"
// @Param       request body UpdateRoleRequest true "New role"
// @Success     200 {object} Response{data=models.User}
// @Failure     403 {object} ErrorResponse "Admin only"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{id}/role [put]
func (h *UserHandler) UpdateRole(c *gin.Context) {
	adminID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), id, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(c.Request.Context(), adminID, "UPDATE_ROLE", "user", user.ID, c.ClientIP(),
		map[string]any{"role": req.Role})
	respond(c, http.StatusOK, user, "Role updated")
}
