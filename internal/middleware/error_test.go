package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "investtrack/internal/errors"
)

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperrors.WithField(apperrors.ErrDuplicateKey, "name", "Duplicate value for name"))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("db exploded"))
	})
	r.GET("/validation", func(c *gin.Context) {
		_ = c.Error(apperrors.Validation(
			apperrors.FieldError{Field: "name", Message: "name is required"},
			apperrors.FieldError{Field: "sectors", Message: "sectors is required"},
		))
	})

	t.Run("app_error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app", http.NoBody))
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		body := parseBody(t, rec)
		errObj := body["error"].(map[string]interface{})
		if errObj["field"] != "name" {
			t.Errorf("expected field name, got %v", errObj["field"])
		}
		if body["message"] != "Duplicate value for name" {
			t.Errorf("unexpected message %v", body["message"])
		}
		if _, ok := body["stack"]; !ok {
			t.Error("expected stack outside release mode")
		}
	})

	t.Run("plain_error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", http.NoBody))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		body := parseBody(t, rec)
		if got := errorCode(t, body); got != "INTERNAL_ERROR" {
			t.Errorf("expected INTERNAL_ERROR, got %s", got)
		}
		if body["message"] == "db exploded" {
			t.Error("internal details must not leak")
		}
	})

	t.Run("validation_lists_fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/validation", http.NoBody))
		body := parseBody(t, rec)
		fields := body["error"].(map[string]interface{})["fields"].([]interface{})
		if len(fields) != 2 {
			t.Errorf("expected 2 fields, got %d", len(fields))
		}
	})
}

func TestRenderError_ReleaseModeHidesStack(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	RenderError(c, apperrors.WithMessage(apperrors.ErrNotFound, "gone"))

	body := parseBody(t, rec)
	if _, ok := body["stack"]; ok {
		t.Error("stack must be omitted in release mode")
	}
}

func TestRequestLogging(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("generates_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
	})

	t.Run("keeps_valid_incoming_id", func(t *testing.T) {
		id := "0190a8c4-0000-7000-8000-000000000042"
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set("X-Request-ID", id)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got != id {
			t.Errorf("expected %s, got %s", id, got)
		}
	})
}
