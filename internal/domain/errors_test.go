package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
)

func TestPlanExistsError(t *testing.T) {
	err := &domain.PlanExistsError{
		PlanDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Shift:    domain.ShiftDay,
	}
	msg := err.Error()
	if !strings.Contains(msg, "2025-06-01") {
		t.Errorf("error message should contain the date, got: %q", msg)
	}
	if !strings.Contains(msg, "DAY") {
		t.Errorf("error message should contain the shift, got: %q", msg)
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &domain.InvalidTransitionError{
		TaskID: "t-42",
		From:   domain.TaskCancelled,
		To:     domain.TaskCompleted,
	}
	msg := err.Error()
	for _, want := range []string{"t-42", "CANCELLED", "COMPLETED"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message should contain %q, got: %q", want, msg)
		}
	}
}

func TestNotFoundErrors(t *testing.T) {
	if msg := (&domain.TaskNotFoundError{TaskID: "abc"}).Error(); !strings.Contains(msg, "abc") {
		t.Errorf("task message should contain the ID, got: %q", msg)
	}
	if msg := (&domain.PlanNotFoundError{PlanID: "xyz"}).Error(); !strings.Contains(msg, "xyz") {
		t.Errorf("plan message should contain the ID, got: %q", msg)
	}
}

func TestCollaboratorErrorUnwraps(t *testing.T) {
	inner := &domain.TaskNotFoundError{TaskID: "q"}
	err := &domain.CollaboratorError{Collaborator: "time estimator", Err: inner}
	if err.Unwrap() != inner {
		t.Error("Unwrap should return the wrapped error")
	}
	if !strings.Contains(err.Error(), "time estimator") {
		t.Errorf("error message should name the collaborator, got: %q", err.Error())
	}
}

func TestAllErrorTypesImplementError(t *testing.T) {
	// Compile-time interface checks via assignment to error variables.
	var _ error = &domain.PlanExistsError{}
	var _ error = &domain.PlanNotFoundError{}
	var _ error = &domain.TaskNotFoundError{}
	var _ error = &domain.InvalidTransitionError{}
	var _ error = &domain.PlanStateError{}
	var _ error = &domain.ValidationError{}
	var _ error = &domain.CollaboratorError{}
}
