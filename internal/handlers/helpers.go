package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/middleware"
	"investtrack/internal/pagination"
	"investtrack/internal/services"
	"investtrack/internal/uuid"
)

// Response is the body of every successful request.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse documents the body of a failed request.
type ErrorResponse = middleware.ErrorResponse

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// parsePathID validates a UUID path parameter.
func parsePathID(c *gin.Context, param string) (string, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// respondWithError writes a consistent JSON error response.
func respondWithError(c *gin.Context, err error) {
	middleware.RenderError(c, err)
}

// bindingError turns a binding failure into a VALIDATION_ERROR listing every
// offending field. Malformed bodies become INVALID_INPUT.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperrors.FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
		}
		return apperrors.Validation(fields...)
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "url":
		return name + " must be a valid url"
	case "min":
		return name + " must be at least " + fe.Param()
	case "max":
		return name + " must be at most " + fe.Param()
	case "oneof":
		return name + " must be one of " + fe.Param()
	case "strong_password":
		return name + " must be at least 8 characters with upper-case, lower-case, digit and special characters"
	}
	return name + " is invalid"
}

// bindBody binds a JSON body, or the JSON "data" field of a multipart form.
func bindBody(c *gin.Context, dst any) error {
	if !isMultipart(c) {
		if err := c.ShouldBindJSON(dst); err != nil {
			return bindingError(err)
		}
		return nil
	}
	if _, err := c.MultipartForm(); err != nil {
		return multipartError(err)
	}
	if raw := c.PostForm("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "data: "+err.Error())
		}
	}
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return bindingError(err)
	}
	return nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formUpload reads an optional file field. A missing field yields nil.
func formUpload(c *gin.Context, field string) (*services.Upload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if isBodyTooLarge(err) {
		return nil, apperrors.ErrFileTooLarge
	}
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid file field "+field)
	}
	return readUpload(header, uploadLimit(c))
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// multipartError maps a failed form parse to an API error.
func multipartError(err error) error {
	if isBodyTooLarge(err) {
		return apperrors.ErrFileTooLarge
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid multipart form")
}

// uploadLimit is the per-file cap configured on the router, falling back to
// the service default.
func uploadLimit(c *gin.Context) int64 {
	if limit := middleware.UploadLimit(c); limit > 0 {
		return limit
	}
	return services.DefaultUploadMaxBytes
}

// firstUpload returns the first of fields that carries a file.
func firstUpload(c *gin.Context, fields ...string) (*services.Upload, error) {
	for _, f := range fields {
		up, err := formUpload(c, f)
		if err != nil || up != nil {
			return up, err
		}
	}
	return nil, nil
}

// readUpload reads at most limit bytes of an uploaded file.
func readUpload(header *multipart.FileHeader, limit int64) (*services.Upload, error) {
	tooLarge := apperrors.WithMessage(apperrors.ErrFileTooLarge,
		fmt.Sprintf("%s exceeds the %d MiB upload limit", header.Filename, limit>>20))
	if header.Size > limit {
		return nil, tooLarge
	}
	f, err := header.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if int64(len(data)) > limit {
		return nil, tooLarge
	}
	return &services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// bindPage reads page and perPage from the query string.
func bindPage(c *gin.Context) (pagination.PageRequest, error) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		return page, apperrors.WithMessage(apperrors.ErrInvalidInput, "page and perPage must be integers")
	}
	return page, nil
}

// queryList accepts both repeated keys and comma separated values.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, key+" must be true or false")
	}
	return &b, nil
}
