package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout)
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestAppError_NotFound_Success(t *testing.T) {
	err := NotFound("run", "123")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.HTTPStatus)
	}
	if err.Details["resource"] != "run" {
		t.Errorf("expected resource=run, got %v", err.Details["resource"])
	}
	if err.Details["id"] != "123" {
		t.Errorf("expected id=123, got %v", err.Details["id"])
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("run", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestAppError_Internal_Success(t *testing.T) {
	cause := fmt.Errorf("db connection lost")
	err := Internal(cause)
	if err.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.HTTPStatus)
	}
	if err.Cause != cause {
		t.Error("expected cause to be set")
	}
}

func TestAppError_MissingField_Success(t *testing.T) {
	err := MissingField("pipeline")
	if err.Code != ErrCodeMissingField {
		t.Errorf("expected MISSING_FIELD, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.HTTPStatus)
	}
	if err.Details["field"] != "pipeline" {
		t.Errorf("expected field=pipeline, got %v", err.Details["field"])
	}
}

func TestAppError_RateLimited_Retryable(t *testing.T) {
	err := RateLimited()
	if !err.Retryable {
		t.Error("RATE_LIMITED should be retryable")
	}
	if err.HTTPStatus != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", err.HTTPStatus)
	}
}

func TestAppError_CycleDetected_Success(t *testing.T) {
	err := CycleDetected("etl", []string{"a", "b", "a"})
	if err.Code != ErrCodeCycleDetected {
		t.Errorf("expected CYCLE_DETECTED, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", err.HTTPStatus)
	}
	if err.Details["pipeline_id"] != "etl" {
		t.Errorf("expected pipeline_id=etl, got %v", err.Details["pipeline_id"])
	}
	cycle, ok := err.Details["cycle"].([]string)
	if !ok || len(cycle) != 3 {
		t.Errorf("expected cycle path in details, got %v", err.Details["cycle"])
	}
}

func TestAppError_Deadlock_Success(t *testing.T) {
	err := Deadlock("etl", []string{"c"})
	if err.Code != ErrCodeDeadlock {
		t.Errorf("expected DEADLOCK, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", err.HTTPStatus)
	}
	remaining, ok := err.Details["remaining"].([]string)
	if !ok || len(remaining) != 1 || remaining[0] != "c" {
		t.Errorf("expected remaining=[c], got %v", err.Details["remaining"])
	}
}

func TestAppError_Error_WithCause(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := New(ErrCodeInternal, "something broke", http.StatusInternalServerError).WithCause(cause)
	msg := err.Error()
	if !strings.Contains(msg, "INTERNAL_ERROR") {
		t.Errorf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "underlying") {
		t.Errorf("expected cause in message, got %q", msg)
	}
}

func TestAppError_Unwrap_Success(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Internal(cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestAppError_WithDetail_Success(t *testing.T) {
	err := Conflict("run in progress").WithDetail("run_id", "r1")
	if err.Details["run_id"] != "r1" {
		t.Errorf("expected run_id=r1, got %v", err.Details["run_id"])
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	err := InvalidInput("name", "must not be empty")
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", resp.Error.Code)
	}
	if resp.Error.Message == "" {
		t.Error("expected a message in the response body")
	}
	if resp.Error.Details["field"] != "name" {
		t.Errorf("expected field detail in response, got %v", resp.Error.Details)
	}
}

func TestAsAppError_Success(t *testing.T) {
	original := NotFound("pipeline", "p1")
	wrapped := fmt.Errorf("lookup failed: %w", original)
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to unwrap the AppError")
	}
	if appErr.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", appErr.Code)
	}
}

func TestAsAppError_PlainError(t *testing.T) {
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain errors should not convert to AppError")
	}
}

func TestIsRetryableCode_Success(t *testing.T) {
	retryable := []ErrorCode{ErrCodeServiceUnavailable, ErrCodeTimeout, ErrCodeRateLimited}
	for _, code := range retryable {
		if !IsRetryableCode(code) {
			t.Errorf("%s should be retryable", code)
		}
	}
	notRetryable := []ErrorCode{ErrCodeNotFound, ErrCodeInvalidInput, ErrCodeCycleDetected, ErrCodeDeadlock, ErrCodeInternal}
	for _, code := range notRetryable {
		if IsRetryableCode(code) {
			t.Errorf("%s should not be retryable", code)
		}
	}
}
