package httpx

import (
	"fmt"
	"net/http"

	"github.com/mbolis/quick-form/log"
	"github.com/sirupsen/logrus"
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Will log an error with its stack, and send an HTTP response with status
// 500, the given error text and the underlying message
func LogInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	Logger(r).WithField("error", fmt.Sprintf("%+v", err)).Error(msg)
	JSON(w, r, http.StatusInternalServerError, ErrorBody{
		Error:   msg,
		Message: err.Error(),
	})
}

// Will log a debug message, and send an HTTP response with status 404
func LogNotFound(w http.ResponseWriter, r *http.Request, msg string, id any) {
	Logger(r).Debugf("%s (%v)", msg, id)
	JSON(w, r, http.StatusNotFound, ErrorBody{Error: msg})
}

// Will log an error text at the given level, and send
// an HTTP response with the given status and text
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, msg string) {
	Logger(r).Log(logrus.Level(level), msg)
	JSON(w, r, status, ErrorBody{Error: msg})
}

// Will log an error text and message at the given level,
// and send an HTTP response with the given status, text and formatted message
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, msg string, detail string, args ...any) {
	message := fmt.Sprintf(detail, args...)
	Logger(r).Log(logrus.Level(level), msg+": "+message)
	JSON(w, r, status, ErrorBody{Error: msg, Message: message})
}
