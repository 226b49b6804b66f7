package testutil

import (
	"errors"
	"slices"
	"testing"

	apperrors "investtrack/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) *apperrors.AppError {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// AssertDuplicate checks that err is a DUPLICATE_KEY naming field.
func AssertDuplicate(t *testing.T, err error, field string) {
	t.Helper()

	appErr := AssertAppError(t, err, "DUPLICATE_KEY")
	if appErr.Field != field {
		t.Errorf("expected duplicate %q, got %q", field, appErr.Field)
	}
}

// AssertInvalidFields checks that err is a VALIDATION_ERROR reporting exactly
// the given fields, in any order.
func AssertInvalidFields(t *testing.T, err error, fields ...string) {
	t.Helper()

	appErr := AssertAppError(t, err, "VALIDATION_ERROR")
	got := make([]string, 0, len(appErr.Fields))
	for _, f := range appErr.Fields {
		got = append(got, f.Field)
	}
	want := slices.Clone(fields)
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("expected invalid fields %v, got %v", want, got)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
