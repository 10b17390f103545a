package routes

import (
	"net/http"

	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/model"
)

func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := urlID(w, r)
		if !ok {
			return
		}

		in := model.NewResponseInput()
		if !decodeBody(w, r, &in) {
			return
		}
		log := httpx.Logger(r).WithField("formId", formID).WithField("respondentName", in.RespondentName)
		log.Info("submitting form response")

		resp, err := app.SubmitResponse(r.Context(), formID, in)
		if err != nil {
			fail(w, r, "Failed to submit response", err)
			return
		}

		log.WithField("responseId", resp.ID).Info("submitted form response")
		httpx.JSON(w, r, http.StatusCreated, map[string]any{
			"success":    true,
			"message":    "Response submitted successfully",
			"responseId": resp.ID,
			"response":   resp,
		})
	}
}

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := urlID(w, r)
		if !ok {
			return
		}
		httpx.Logger(r).WithField("formId", formID).Info("fetching all responses for form")

		responses, err := app.ListResponses(r.Context(), formID)
		if err != nil {
			fail(w, r, "Failed to fetch responses", err)
			return
		}

		httpx.JSON(w, r, http.StatusOK, map[string]any{
			"success":   true,
			"responses": responses,
			"count":     len(responses),
		})
	}
}

func GetResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, ok := urlID(w, r)
		if !ok {
			return
		}
		httpx.Logger(r).WithField("responseId", responseID).Info("fetching single response")

		resp, err := app.GetResponse(r.Context(), responseID)
		if err != nil {
			fail(w, r, "Failed to fetch response", err)
			return
		}

		httpx.JSON(w, r, http.StatusOK, map[string]any{
			"success":  true,
			"response": resp,
		})
	}
}
