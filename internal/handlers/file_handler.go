package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"investtrack/internal/services"
)

// FileHandler serves stored attachments.
type FileHandler struct {
	fileService services.FileServicer
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(fileService services.FileServicer) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// GetFile returns attachment metadata
// @Summary     Get file metadata
// @Tags        files
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "File ID"
// @Success     200 {object} Response{data=models.File}
// @Failure     404 {object} ErrorResponse "File not found"
// @Router      /files/{id} [get]
func (h *FileHandler) GetFile(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	file, err := h.fileService.GetFile(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, file, "")
}

// Download streams the stored bytes
// @Summary     Download a file
// @Tags        files
// @Produce     octet-stream
// @Security    BearerAuth
// @Param       id path string true "File ID"
// @Success     200 {file} binary
// @Failure     404 {object} ErrorResponse "File not found"
// @Router      /files/{id}/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	file, data, err := h.fileService.Download(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, file.MimeType, data)
}
