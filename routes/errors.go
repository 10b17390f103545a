package routes

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/service"
)

// fail maps a service error onto its HTTP response: validation failures
// are 400, missing rows 404, and anything else 500 under the given text.
func fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *service.ValidationError
	var nerr *service.NotFoundError
	switch {
	case errors.As(err, &verr):
		httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, verr.Message)
	case errors.As(err, &nerr):
		httpx.LogNotFound(w, r, nerr.Error(), nerr.ID)
	default:
		httpx.LogInternalError(w, r, msg, err)
	}
}

// urlID reads the numeric id route parameter. Digits that overflow an
// int64 name no row, so they get the same 404 as an unknown path.
func urlID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Logger(r).WithError(err).Debug("unusable id")
		routeNotFound(w, r)
		return 0, false
	}
	return id, true
}

// decodeBody reads a JSON body into v. An empty body leaves v as it is.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(r, v); err != nil && !errors.Is(err, io.EOF) {
		httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "Invalid JSON body", "%s", err)
		return false
	}
	return true
}
