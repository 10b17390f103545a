package routes

import (
	"net/http"

	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/model"
)

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		httpx.Logger(r).WithField("query", query).Info("fetching all forms")

		forms, err := app.ListForms(r.Context(), query.Get("limit"), query.Get("offset"))
		if err != nil {
			fail(w, r, "Failed to fetch forms", err)
			return
		}

		httpx.JSON(w, r, http.StatusOK, map[string]any{
			"success": true,
			"forms":   forms,
			"count":   len(forms),
		})
	}
}

func GetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := urlID(w, r)
		if !ok {
			return
		}
		log := httpx.Logger(r).WithField("formId", formID)
		log.Info("fetching form")

		form, err := app.GetForm(r.Context(), formID)
		if err != nil {
			fail(w, r, "Failed to fetch form", err)
			return
		}

		log.WithField("fields", len(form.Fields)).Debug("fetched form")
		httpx.JSON(w, r, http.StatusOK, map[string]any{
			"success": true,
			"form":    form,
		})
	}
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := model.FormInput{}
		if !decodeBody(w, r, &in) {
			return
		}
		log := httpx.Logger(r).WithField("title", in.Title)
		log.Info("creating form")

		form, err := app.CreateForm(r.Context(), in)
		if err != nil {
			fail(w, r, "Failed to create form", err)
			return
		}

		log.WithField("formId", form.ID).Info("created form")
		httpx.JSON(w, r, http.StatusCreated, map[string]any{
			"success": true,
			"message": "Form created successfully",
			"formId":  form.ID,
			"form":    form,
		})
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := urlID(w, r)
		if !ok {
			return
		}

		in := model.FormInput{}
		if !decodeBody(w, r, &in) {
			return
		}
		log := httpx.Logger(r).WithField("formId", formID).WithField("title", in.Title)
		log.Info("updating form")

		form, err := app.UpdateForm(r.Context(), formID, in)
		if err != nil {
			fail(w, r, "Failed to update form", err)
			return
		}

		log.Info("updated form")
		httpx.JSON(w, r, http.StatusOK, map[string]any{
			"success": true,
			"message": "Form updated successfully",
			"form":    form,
		})
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := urlID(w, r)
		if !ok {
			return
		}
		log := httpx.Logger(r).WithField("formId", formID)
		log.Info("deleting form")

		deletedID, err := app.DeleteForm(r.Context(), formID)
		if err != nil {
			fail(w, r, "Failed to delete form", err)
			return
		}

		log.Info("deleted form")
		httpx.JSON(w, r, http.StatusOK, map[string]any{
			"success":   true,
			"message":   "Form deleted successfully",
			"deletedId": deletedID,
		})
	}
}
