package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/models"
	"investtrack/internal/pagination"
	"investtrack/internal/services"
)

type mockCoverageService struct {
	createCoverageFn func(brokerID string, in services.CoverageInput, upload *services.Upload) (*models.Coverage, error)
	listCoveragesFn  func(brokerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Coverage], error)
	getCoverageFn    func(brokerID, id string) (*models.Coverage, error)
	updateCoverageFn func(brokerID, id string, in services.CoverageUpdate, upload *services.Upload) (*models.Coverage, error)
	deleteCoverageFn func(brokerID, id string) (*models.Coverage, error)
}

var _ services.CoverageServicer = (*mockCoverageService)(nil)

func testCoverage(id, brokerID string) *models.Coverage {
	c := &models.Coverage{FirmID: brokerID, FiscalYear: 2024, Quarter: 1, TargetPrice: decimal.NewFromInt(1250)}
	c.ID = id
	return c
}

func (m *mockCoverageService) CreateCoverage(_ context.Context, brokerID string, in services.CoverageInput, upload *services.Upload) (*models.Coverage, error) {
	if m.createCoverageFn != nil {
		return m.createCoverageFn(brokerID, in, upload)
	}
	return testCoverage(testOther, brokerID), nil
}

func (m *mockCoverageService) ListCoverages(_ context.Context, brokerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Coverage], error) {
	if m.listCoveragesFn != nil {
		return m.listCoveragesFn(brokerID, page)
	}
	return &pagination.PageResponse[models.Coverage]{Data: []models.Coverage{}}, nil
}

func (m *mockCoverageService) GetCoverage(_ context.Context, brokerID, id string) (*models.Coverage, error) {
	if m.getCoverageFn != nil {
		return m.getCoverageFn(brokerID, id)
	}
	return testCoverage(id, brokerID), nil
}

func (m *mockCoverageService) UpdateCoverage(_ context.Context, brokerID, id string, in services.CoverageUpdate, upload *services.Upload) (*models.Coverage, error) {
	if m.updateCoverageFn != nil {
		return m.updateCoverageFn(brokerID, id, in, upload)
	}
	return testCoverage(id, brokerID), nil
}

func (m *mockCoverageService) DeleteCoverage(_ context.Context, brokerID, id string) (*models.Coverage, error) {
	if m.deleteCoverageFn != nil {
		return m.deleteCoverageFn(brokerID, id)
	}
	return testCoverage(id, brokerID), nil
}

func setupCoverageRouter(handler *CoverageHandler) *gin.Engine {
	r := gin.New()
	r.Use(injectUserID(testUserID))
	r.POST("/coverages/:brokerId", handler.CreateCoverage)
	r.GET("/coverages/:brokerId", handler.ListCoverages)
	r.GET("/coverages/:brokerId/:id", handler.GetCoverage)
	r.PUT("/coverages/:brokerId/:id", handler.UpdateCoverage)
	r.DELETE("/coverages/:brokerId/:id", handler.DeleteCoverage)
	return r
}

func TestCoverageHandler_CreateCoverage(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var gotBroker string
		var got services.CoverageInput
		svc := &mockCoverageService{
			createCoverageFn: func(brokerID string, in services.CoverageInput, upload *services.Upload) (*models.Coverage, error) {
				gotBroker, got = brokerID, in
				if upload != nil {
					t.Error("expected no document")
				}
				return testCoverage(testOther, brokerID), nil
			},
		}
		audit := &mockAuditService{}
		r := setupCoverageRouter(NewCoverageHandler(svc, audit))

		rec := doRequest(r, http.MethodPost, "/coverages/"+testFirmID,
			`{"fiscal_year":2024,"quarter":1,"tp":"1250.75","recommendation":"Buy"}`)
		assertStatus(t, rec, http.StatusCreated)
		if gotBroker != testFirmID || got.Quarter != 1 || got.TargetPrice == nil || got.TargetPrice.String() != "1250.75" {
			t.Errorf("unexpected input %+v for %s", got, gotBroker)
		}
		if a := audit.actions(); len(a) != 1 || a[0] != "CREATE_COVERAGE" {
			t.Errorf("expected CREATE_COVERAGE audit, got %v", a)
		}
	})

	t.Run("multipart with document", func(t *testing.T) {
		var gotUpload *services.Upload
		svc := &mockCoverageService{
			createCoverageFn: func(brokerID string, _ services.CoverageInput, upload *services.Upload) (*models.Coverage, error) {
				gotUpload = upload
				return testCoverage(testOther, brokerID), nil
			},
		}
		r := setupCoverageRouter(NewCoverageHandler(svc, &mockAuditService{}))
		rec := doMultipart(t, r, http.MethodPost, "/coverages/"+testFirmID,
			map[string]string{"data": `{"fiscal_year":2024,"quarter":2,"tp":"99"}`},
			formFile{field: "coverage", filename: "report.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")})
		assertStatus(t, rec, http.StatusCreated)
		if gotUpload == nil || gotUpload.Filename != "report.pdf" {
			t.Errorf("unexpected upload %+v", gotUpload)
		}
	})

	t.Run("validation", func(t *testing.T) {
		r := setupCoverageRouter(NewCoverageHandler(&mockCoverageService{}, &mockAuditService{}))
		rec := doRequest(r, http.MethodPost, "/coverages/"+testFirmID, `{"fiscal_year":2024,"quarter":5}`)
		assertStatus(t, rec, http.StatusBadRequest)
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "VALIDATION_ERROR")
		if n := len(errorFields(t, result)); n != 2 {
			t.Errorf("expected quarter and tp, got %d fields", n)
		}
	})

	t.Run("duplicate period", func(t *testing.T) {
		svc := &mockCoverageService{
			createCoverageFn: func(_ string, _ services.CoverageInput, _ *services.Upload) (*models.Coverage, error) {
				return nil, apperrors.WithField(apperrors.ErrDuplicateKey, "fiscal_year,quarter", "period already covered")
			},
		}
		r := setupCoverageRouter(NewCoverageHandler(svc, &mockAuditService{}))
		rec := doRequest(r, http.MethodPost, "/coverages/"+testFirmID, `{"fiscal_year":2024,"quarter":1,"tp":"10"}`)
		assertStatus(t, rec, http.StatusConflict)
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "DUPLICATE_KEY")
		if result["error"].(map[string]interface{})["field"] != "fiscal_year,quarter" {
			t.Errorf("unexpected field in %v", result["error"])
		}
	})

	t.Run("bad broker id", func(t *testing.T) {
		r := setupCoverageRouter(NewCoverageHandler(&mockCoverageService{}, &mockAuditService{}))
		rec := doRequest(r, http.MethodPost, "/coverages/acme", `{"fiscal_year":2024,"quarter":1,"tp":"10"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestCoverageHandler_ReadUpdateDelete(t *testing.T) {
	var calls []string
	svc := &mockCoverageService{
		listCoveragesFn: func(brokerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Coverage], error) {
			calls = append(calls, "list")
			return &pagination.PageResponse[models.Coverage]{Data: []models.Coverage{*testCoverage(testOther, brokerID)}}, nil
		},
		getCoverageFn: func(brokerID, id string) (*models.Coverage, error) {
			calls = append(calls, "get")
			return nil, apperrors.ErrCoverageNotFound
		},
		updateCoverageFn: func(brokerID, id string, in services.CoverageUpdate, _ *services.Upload) (*models.Coverage, error) {
			calls = append(calls, "update")
			if in.Recommendation == nil || *in.Recommendation != models.RecommendationHold {
				t.Errorf("unexpected update %+v", in)
			}
			return testCoverage(id, brokerID), nil
		},
		deleteCoverageFn: func(brokerID, id string) (*models.Coverage, error) {
			calls = append(calls, "delete")
			return testCoverage(id, brokerID), nil
		},
	}
	r := setupCoverageRouter(NewCoverageHandler(svc, &mockAuditService{}))
	base := "/coverages/" + testFirmID

	assertStatus(t, doRequest(r, http.MethodGet, base, ""), http.StatusOK)

	rec := doRequest(r, http.MethodGet, base+"/"+testOther, "")
	assertStatus(t, rec, http.StatusNotFound)
	assertErrorCode(t, parseJSON(t, rec), "COVERAGE_NOT_FOUND")

	assertStatus(t, doRequest(r, http.MethodPut, base+"/"+testOther, `{"recommendation":"Hold"}`), http.StatusOK)
	assertStatus(t, doRequest(r, http.MethodPut, base+"/"+testOther, `{"recommendation":"Maybe"}`), http.StatusBadRequest)
	assertStatus(t, doRequest(r, http.MethodDelete, base+"/"+testOther, ""), http.StatusOK)

	want := []string{"list", "get", "update", "delete"}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
}
