package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestTypeOfThroughWrapping(t *testing.T) {
	base := NewFatalStage("no images generated", errors.New("3 of 3 scenes failed"))
	wrapped := fmt.Errorf("stage images: %w", base)

	if !IsFatalStage(wrapped) {
		t.Fatalf("IsFatalStage(%v) = false", wrapped)
	}
	if IsValidation(wrapped) {
		t.Fatal("fatal stage reported as validation")
	}
	if got := wrapped.Error(); got != "stage images: no images generated: 3 of 3 scenes failed" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}

	v := NewValidation("bad index", nil)
	if got := Wrap(v, "ignored"); got != v {
		t.Fatalf("Wrap changed an AppError: %v", got)
	}

	plain := errors.New("boom")
	w := Wrap(plain, "assemble")
	if TypeOf(w) != TypeInternal || !errors.Is(w, plain) {
		t.Fatalf("Wrap(plain) = %v", w)
	}
}

func TestTypeOfPlainError(t *testing.T) {
	if TypeOf(errors.New("x")) != TypeInternal {
		t.Fatal("plain errors should be internal")
	}
	if IsNotFound(nil) || IsUnavailable(nil) {
		t.Fatal("nil error matched a type")
	}
}

func TestIsHelpers(t *testing.T) {
	cases := []struct {
		err  error
		is   func(error) bool
		name string
	}{
		{NewFatalStage("f", nil), IsFatalStage, "fatal"},
		{NewUnavailable("u"), IsUnavailable, "unavailable"},
		{NewValidation("v", nil), IsValidation, "validation"},
		{NewNotFound("n"), IsNotFound, "not found"},
	}
	for _, tc := range cases {
		if !tc.is(tc.err) || !tc.is(fmt.Errorf("ctx: %w", tc.err)) {
			t.Errorf("%s: helper did not match", tc.name)
		}
		if tc.is(errors.New(tc.name)) {
			t.Errorf("%s: helper matched a plain error", tc.name)
		}
	}
}
