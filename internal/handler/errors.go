package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"socialcredit-api/internal/middleware"
	"socialcredit-api/internal/model"
	"socialcredit-api/pkg/apierror"
	"socialcredit-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type domainError struct {
	err    error
	status int
	code   string
}

// domainErrors maps ledger failures to API codes. Order matters only for
// errors that wrap one another.
var domainErrors = []domainError{
	{model.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{model.ErrDuplicateIdentity, http.StatusConflict, "DUPLICATE_IDENTITY"},
	{model.ErrAlreadyLinked, http.StatusConflict, "ALREADY_LINKED"},
	{model.ErrUnknownExternalIdentity, http.StatusUnprocessableEntity, "UNKNOWN_EXTERNAL_IDENTITY"},
	{model.ErrIdentityMismatch, http.StatusUnprocessableEntity, "IDENTITY_MISMATCH"},
	{model.ErrIdentityTaken, http.StatusConflict, "IDENTITY_TAKEN"},
	{model.ErrVerifierUnavailable, http.StatusServiceUnavailable, "VERIFIER_UNAVAILABLE"},
	{model.ErrUnknownRecipient, http.StatusNotFound, "UNKNOWN_RECIPIENT"},
	{model.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{model.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
	{model.ErrSelfTransfer, http.StatusUnprocessableEntity, "SELF_TRANSFER"},
	{model.ErrRecipientNotReady, http.StatusUnprocessableEntity, "RECIPIENT_NOT_READY"},
	{model.ErrLedgerExists, http.StatusConflict, "LEDGER_EXISTS"},
	{model.ErrCategoryNotConfigured, http.StatusUnprocessableEntity, "CATEGORY_NOT_CONFIGURED"},
	{model.ErrDuplicateItem, http.StatusConflict, "DUPLICATE_ITEM"},
	{model.ErrAlreadyClaimed, http.StatusConflict, "ALREADY_CLAIMED"},
	{model.ErrClaimerNotReady, http.StatusUnprocessableEntity, "CLAIMER_NOT_READY"},
	{model.ErrNotClaimedByUser, http.StatusUnprocessableEntity, "NOT_CLAIMED_BY_USER"},
	{model.ErrAlreadyPaid, http.StatusConflict, "ALREADY_PAID"},
	{model.ErrNoSession, http.StatusNotFound, "NO_SESSION"},
	{model.ErrInvalidFormat, http.StatusBadRequest, "INVALID_FORMAT"},
	{model.ErrUnknownSetting, http.StatusBadRequest, "UNKNOWN_SETTING"},
}

// toAPIError converts a service error into its API representation.
func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return apierror.New(d.status, d.code, d.err.Error())
		}
	}
	return nil
}

// writeError sends err to the client, logging anything that is not a
// known ledger failure.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apiErr := toAPIError(err); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	log.Printf("[Handler] %s %s (request %s): %v", r.Method, r.URL.Path, middleware.GetRequestID(r.Context()), err)
	response.Error(w, apierror.InternalError(""))
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apierror.BadRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// idParam parses a snowflake id from the URL path.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.ValidationError("invalid path parameter",
			apierror.FieldError{Field: name, Message: "must be a positive integer id"})
	}
	return id, nil
}

// pageParams reads page and limit query parameters.
func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func requireField(field string, ok bool, message string) error {
	if ok {
		return nil
	}
	return apierror.ValidationError("invalid request", apierror.FieldError{Field: field, Message: message})
}
