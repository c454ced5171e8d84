package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew_DefaultsFromCode(t *testing.T) {
	err := New(CodeInsufficientBalance)
	if err.Message != "Insufficient balance" {
		t.Errorf("message = %q", err.Message)
	}
	if err.StatusCode != http.StatusConflict {
		t.Errorf("status = %d", err.StatusCode)
	}
	if err.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestIs_ComparesCode(t *testing.T) {
	err := fmt.Errorf("deposit: %w", Validation(CodeInvalidAmount, "amount=0"))
	if !errors.Is(err, New(CodeInvalidAmount)) {
		t.Fatal("expected errors.Is to match by code")
	}
	if errors.Is(err, New(CodeUnauthorized)) {
		t.Fatal("unexpected match")
	}
	if !HasCode(err, CodeInvalidAmount) {
		t.Fatal("HasCode should find wrapped code")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, CodeInternalError, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}

	base := errors.New("dial tcp: refused")
	wrapped := Wrap(base, CodeRPCError, "eth_call")
	if !errors.Is(wrapped, base) {
		t.Fatal("cause lost")
	}

	app := NotFound(CodeUserNotFound, "")
	if got := Wrap(app, CodeInternalError, "lookup"); got != app || got.Context != "lookup" {
		t.Fatalf("existing AppError should be reused with context, got %+v", got)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{New(CodeUnauthorized), KindAuthorization},
		{New(CodeInvalidAmount), KindValidation},
		{New(CodePairNotFound), KindValidation},
		{New(CodeAlreadyInitialized), KindInvariant},
		{New(CodeVenueUnavailable), KindExternal},
		{errors.New("plain"), KindInternal},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(errors.New("x")) != CodeUnknownError {
		t.Fatal("plain errors should be unknown")
	}
	if GetCode(Conflict(CodeUserAlreadyRegistered, "GABC")) != CodeUserAlreadyRegistered {
		t.Fatal("code mismatch")
	}
}
