package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestAppErrorMessageAndUnwrap(t *testing.T) {
	err := NewIOError("save project", fs.ErrPermission)

	if err.Code != "IO_ERROR" {
		t.Fatalf("expected IO_ERROR code, got %s", err.Code)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatal("AppError should unwrap to the original error")
	}
	if err.Error() != "save project: permission denied" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestPredicatesFollowWrappedChains(t *testing.T) {
	notFound := NewNotFoundError("project abc not found", nil)
	wrapped := fmt.Errorf("load: %w", notFound)

	if !IsNotFoundError(wrapped) {
		t.Fatal("IsNotFoundError should see through fmt wrapping")
	}
	if IsValidationError(wrapped) || IsConflictError(wrapped) || IsIOError(wrapped) {
		t.Fatal("a not-found error must not match other predicates")
	}
	if IsNotFoundError(errors.New("plain")) {
		t.Fatal("plain errors are not AppErrors")
	}
}

func TestWrapErrorKeepsOriginalType(t *testing.T) {
	base := NewValidationError("title is required", nil)
	wrapped := WrapError(base, "create project", ErrorTypeError)

	if !IsValidationError(wrapped) {
		t.Fatal("WrapError should keep the type of an existing AppError")
	}
	if wrapped.Error() != "create project: title is required: title is required" {
		t.Fatalf("unexpected message: %q", wrapped.Error())
	}

	plain := WrapError(errors.New("disk full"), "write preview", ErrorTypeIO)
	if !IsIOError(plain) {
		t.Fatal("WrapError should apply the given type to plain errors")
	}
	if WrapError(nil, "noop", ErrorTypeIO) != nil {
		t.Fatal("WrapError(nil) must return nil")
	}
}

func TestCorruptDataError(t *testing.T) {
	err := NewCorruptDataError("corrupt project file a.json", errors.New("unexpected EOF"))
	if !IsValidationError(err) || !IsCorruptDataError(err) {
		t.Fatalf("unexpected classification for %v", err)
	}
	if !IsCorruptDataError(WrapError(err, "load project", ErrorTypeIO)) {
		t.Fatal("wrapping should keep the corrupt data code")
	}
	if IsCorruptDataError(NewValidationError("title is required", nil)) {
		t.Fatal("plain validation errors are not corrupt data")
	}
}
