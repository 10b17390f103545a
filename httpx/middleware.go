package httpx

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID propagates an incoming X-Request-Id or assigns a new one. The
// id is readable with middleware.GetReqID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recoverer turns a panic into a 500 JSON response and logs it with its stack.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			stack := debug.Stack()
			if entry := middleware.GetLogEntry(r); entry != nil {
				entry.Panic(rvr, stack)
				Logger(r).Error("unhandled panic")
			} else {
				Logger(r).WithField("panic", rvr).WithField("stack", string(stack)).Error("unhandled panic")
			}

			JSON(w, r, http.StatusInternalServerError, ErrorBody{Error: "Internal server error"})
		}()

		next.ServeHTTP(w, r)
	})
}
