package validation

import (
	"strings"
	"testing"

	"github.com/skillsenselab/expflow/errors"
)

type sample struct {
	Name  string `yaml:"name" validate:"required"`
	Email string `json:"email_address" validate:"omitempty,email"`
	Count int    `yaml:"count" validate:"min=1,max=10"`
}

func TestValidate_Passes(t *testing.T) {
	s := sample{Name: "ok", Count: 5}
	if err := Validate(&s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RequiredField(t *testing.T) {
	err := Validate(&sample{Count: 5})
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Fatalf("unexpected code: %s", appErr.Code)
	}
	// Field names come from the yaml tag.
	if !strings.Contains(appErr.Message, "name") {
		t.Fatalf("error should name the yaml field: %s", appErr.Message)
	}
}

func TestValidate_JSONTagFallback(t *testing.T) {
	err := Validate(&sample{Name: "ok", Email: "not-an-email", Count: 5})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "email_address") {
		t.Fatalf("error should use the json tag name: %s", err.Error())
	}
}

func TestValidate_CollectsAllFieldErrors(t *testing.T) {
	err := Validate(&sample{Count: 99})
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr, _ := errors.AsAppError(err)
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok {
		t.Fatalf("expected field error details, got %v", appErr.Details)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 field errors (name, count), got %v", fields)
	}
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Name":       "name",
		"TaskCount":  "task_count",
		"MaxRetries": "max_retries",
	}
	for in, want := range cases {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
