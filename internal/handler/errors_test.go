package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"socialcredit-api/internal/model"
	"socialcredit-api/pkg/apierror"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: dial tcp: timeout", model.ErrVerifierUnavailable), http.StatusServiceUnavailable, "VERIFIER_UNAVAILABLE"},
		{fmt.Errorf("%w: welcome", model.ErrUnknownSetting), http.StatusBadRequest, "UNKNOWN_SETTING"},
		{model.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{model.ErrAlreadyPaid, http.StatusConflict, "ALREADY_PAID"},
		{apierror.BadRequest("x"), http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := toAPIError(tt.err)
			if got == nil {
				t.Fatalf("toAPIError(%v) = nil", tt.err)
			}
			if got.StatusCode != tt.status || got.Code != tt.code {
				t.Errorf("got %d %s, want %d %s", got.StatusCode, got.Code, tt.status, tt.code)
			}
		})
	}

	if toAPIError(errors.New("disk full")) != nil {
		t.Error("unknown errors should not map")
	}
}

func TestDomainErrorsCoverEverySentinel(t *testing.T) {
	sentinels := []error{
		model.ErrNotFound, model.ErrDuplicateIdentity, model.ErrAlreadyLinked,
		model.ErrUnknownExternalIdentity, model.ErrIdentityMismatch, model.ErrIdentityTaken,
		model.ErrVerifierUnavailable, model.ErrUnknownRecipient, model.ErrInvalidAmount,
		model.ErrInsufficientFunds, model.ErrSelfTransfer, model.ErrRecipientNotReady,
		model.ErrLedgerExists, model.ErrCategoryNotConfigured, model.ErrDuplicateItem,
		model.ErrAlreadyClaimed, model.ErrClaimerNotReady, model.ErrNotClaimedByUser,
		model.ErrAlreadyPaid, model.ErrNoSession, model.ErrInvalidFormat, model.ErrUnknownSetting,
	}
	seen := make(map[string]bool)
	for _, s := range sentinels {
		e := toAPIError(s)
		if e == nil {
			t.Errorf("%v is not mapped", s)
			continue
		}
		if seen[e.Code] {
			t.Errorf("code %s used twice", e.Code)
		}
		seen[e.Code] = true
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("pq: password authentication failed"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body == "" || strings.Contains(body, "password") {
		t.Errorf("body leaks detail: %s", body)
	}
}

