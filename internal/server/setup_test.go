package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"investtrack/internal/blob"
	"investtrack/internal/config"
	"investtrack/internal/csc"
	"investtrack/internal/logger"
	"investtrack/internal/mail"
	"investtrack/internal/metrics"
	"investtrack/internal/testutil"
	"investtrack/internal/tokenstore"
)

const metricsKey = "metrics-key"

// testApp holds the full application stack for flow tests.
type testApp struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Mailer  *mail.Recorder
	Revoker *tokenstore.Memory
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test", "error")
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		JWTSecret:          "test-secret",
		JWTExpirationDur:   time.Hour,
		BlobBackend:        config.BlobBackendDatabase,
		UploadMaxBytes:     1 << 20,
		ServiceName:        "investtrack-test",
		Version:            "test",
		MetricsAPIKey:      metricsKey,
		TokenPurgeInterval: time.Minute,
	}
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	cfg := testConfig()
	config.Set(cfg)

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	dir, err := csc.Default()
	if err != nil {
		t.Fatalf("failed to load csc directory: %v", err)
	}

	app := &testApp{DB: db, Mailer: &mail.Recorder{}, Revoker: tokenstore.NewMemory()}
	app.Router = NewRouter(Deps{
		Config:  cfg,
		DB:      db,
		Blobs:   blob.NewDatabaseStore(db),
		Revoker: app.Revoker,
		Mailer:  app.Mailer,
		Metrics: metrics.New(),
		CSC:     dir,
	})
	return app
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// upload sends a multipart request with a JSON "data" field and one file.
func (app *testApp) upload(t *testing.T, method, path, token, data, field, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if data != "" {
		if err := w.WriteField("data", data); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) map[string]interface{} {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		return nil
	}
	return parseJSON(t, rec)
}

func dataOf(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %v", result)
	}
	return data
}

func errorCode(result map[string]interface{}) string {
	e, _ := result["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

// registerUser registers a new user and returns the bearer token and user ID.
func (app *testApp) registerUser(t *testing.T, name, email string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"email":%q,"password":%q}`, name, email, testutil.TestPassword)
	data := dataOf(t, expectStatus(t, app.request(http.MethodPost, "/api/v1/auth/register", body, ""), http.StatusCreated))
	user := data["user"].(map[string]interface{})
	return data["token"].(string), user["id"].(string)
}

// loginUser logs in and returns the bearer token.
func (app *testApp) loginUser(t *testing.T, email, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	data := dataOf(t, expectStatus(t, app.request(http.MethodPost, "/api/v1/auth/login", body, ""), http.StatusOK))
	return data["token"].(string)
}

// createFirm creates a firm of the given type and returns its ID.
func (app *testApp) createFirm(t *testing.T, token, firmType, name string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"location_type":"Domestic","sectors":["Banking"],"regional_focus":["Asia"]}`, name)
	data := dataOf(t, expectStatus(t, app.request(http.MethodPost, "/api/v1/firms?firmType="+firmType, body, token), http.StatusCreated))
	return data["id"].(string)
}

// createMember creates a member of firmID and returns its ID.
func (app *testApp) createMember(t *testing.T, token, firmID, name, email, mobile string) string {
	t.Helper()
	body := fmt.Sprintf(`{"firm_id":%q,"name":%q,"email":%q,"mobile_number":{"country_code":"IN","number":%q},"designation":"Analyst","sectors":["Banking"]}`,
		firmID, name, email, mobile)
	data := dataOf(t, expectStatus(t, app.request(http.MethodPost, "/api/v1/members", body, token), http.StatusCreated))
	return data["id"].(string)
}
