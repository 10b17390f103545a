package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/testutil"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	return New(testutil.SetupTestDB(t), testutil.NewLogger())
}

func mustCreate(t *testing.T, s *Service, in model.FormInput) *model.Form {
	t.Helper()
	form, err := s.CreateForm(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateForm: %v", err)
	}
	return form
}

func responseInput(t *testing.T, body string) model.ResponseInput {
	t.Helper()
	in := model.NewResponseInput()
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("decode response input: %v", err)
	}
	return in
}

func labels(fields []model.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

func TestCreateFormWithoutFields(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created := mustCreate(t, s, model.FormInput{Title: "T"})
	if created.ID == 0 {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	form, err := s.GetForm(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	if form.Title != "T" {
		t.Errorf("Title = %q, want T", form.Title)
	}
	if form.Description != "" {
		t.Errorf("Description = %q, want empty", form.Description)
	}
	if form.Fields == nil || len(form.Fields) != 0 {
		t.Errorf("Fields = %#v, want empty list", form.Fields)
	}

	forms, err := s.ListForms(ctx, "", "")
	if err != nil {
		t.Fatalf("ListForms: %v", err)
	}
	if len(forms) != 1 || forms[0].ResponseCount != 0 {
		t.Errorf("ListForms = %+v, want one form with 0 responses", forms)
	}
}

func TestCreateFormFieldRoundTrip(t *testing.T) {
	s := setupService(t)

	created := mustCreate(t, s, model.FormInput{
		Title: "Survey",
		Fields: []model.FieldInput{
			{Label: "Color", Type: model.FieldSelect, Options: model.Options{"Red", "Blue"}, Required: true},
			{Label: "Name", Type: model.FieldText},
			{Label: "Size", Type: model.FieldRadio, Options: model.Options{"S", "M", "L"}},
		},
	})

	form, err := s.GetForm(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	if len(form.Fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(form.Fields))
	}

	color := form.Fields[0]
	if color.Label != "Color" || color.Type != "select" || !color.Required || color.FieldOrder != 0 {
		t.Errorf("unexpected first field: %+v", color)
	}
	if !reflect.DeepEqual(color.Options, []string{"Red", "Blue"}) {
		t.Errorf("Options = %v, want [Red Blue]", color.Options)
	}

	name := form.Fields[1]
	if name.Required {
		t.Error("required should default to false")
	}
	if name.Options == nil || len(name.Options) != 0 {
		t.Errorf("text field options = %#v, want empty list", name.Options)
	}

	for i, f := range form.Fields {
		if f.FieldOrder != i {
			t.Errorf("field %q has field_order %d, want %d", f.Label, f.FieldOrder, i)
		}
	}
}

func TestCreateFormJoinedOptions(t *testing.T) {
	s := setupService(t)

	var in model.FormInput
	body := `{"title":"Joined","fields":[{"label":"Pick","type":"radio","options":"Yes,No"}]}`
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("decode: %v", err)
	}
	created := mustCreate(t, s, in)

	form, err := s.GetForm(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	if !reflect.DeepEqual(form.Fields[0].Options, []string{"Yes", "No"}) {
		t.Errorf("Options = %v, want [Yes No]", form.Fields[0].Options)
	}
}

func TestCreateFormValidation(t *testing.T) {
	s := setupService(t)

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := s.CreateForm(context.Background(), model.FormInput{
			Title:  title,
			Fields: []model.FieldInput{{Label: "x", Type: model.FieldText}},
		})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("title %q: got %v, want ValidationError", title, err)
		}
	}

	if n := testutil.CountRows(t, s.db, "forms"); n != 0 {
		t.Errorf("forms rows = %d, want 0", n)
	}
	if n := testutil.CountRows(t, s.db, "form_fields"); n != 0 {
		t.Errorf("form_fields rows = %d, want 0", n)
	}
}

func TestCreateFormRollsBackOnFieldFailure(t *testing.T) {
	s := setupService(t)

	_, err := s.CreateForm(context.Background(), model.FormInput{
		Title: "Broken",
		Fields: []model.FieldInput{
			{Label: "ok", Type: model.FieldText},
			{Label: "bad", Type: "slider"},
		},
	})
	if err == nil {
		t.Fatal("expected error for unknown field type")
	}
	var verr *ValidationError
	var nerr *NotFoundError
	if errors.As(err, &verr) || errors.As(err, &nerr) {
		t.Errorf("store failure surfaced as %T", err)
	}

	if n := testutil.CountRows(t, s.db, "forms"); n != 0 {
		t.Errorf("forms rows = %d, want 0 after rollback", n)
	}
	if n := testutil.CountRows(t, s.db, "form_fields"); n != 0 {
		t.Errorf("form_fields rows = %d, want 0 after rollback", n)
	}
}

func TestGetFormNotFound(t *testing.T) {
	s := setupService(t)

	_, err := s.GetForm(context.Background(), 999)
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
	if nerr.Error() != "Form not found" {
		t.Errorf("Error() = %q", nerr.Error())
	}
}

func TestUpdateFormReplacesFields(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created := mustCreate(t, s, model.FormInput{
		Title: "Before",
		Fields: []model.FieldInput{
			{Label: "A", Type: model.FieldText},
			{Label: "B", Type: model.FieldEmail},
			{Label: "C", Type: model.FieldNumber},
		},
	})

	updated, err := s.UpdateForm(ctx, created.ID, model.FormInput{
		Title:       "After",
		Description: "new",
		Fields: []model.FieldInput{
			{Label: "C", Type: model.FieldNumber},
			{Label: "D", Type: model.FieldCheckbox},
		},
	})
	if err != nil {
		t.Fatalf("UpdateForm: %v", err)
	}
	if updated.Title != "After" || updated.Description != "new" {
		t.Errorf("updated = %+v", updated)
	}

	form, err := s.GetForm(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	if got := labels(form.Fields); !reflect.DeepEqual(got, []string{"C", "D"}) {
		t.Errorf("fields = %v, want [C D]", got)
	}
	for i, f := range form.Fields {
		if f.FieldOrder != i {
			t.Errorf("field %q has field_order %d, want %d", f.Label, f.FieldOrder, i)
		}
	}

	// full replace: no fields in, no fields out
	if _, err := s.UpdateForm(ctx, created.ID, model.FormInput{Title: "Empty"}); err != nil {
		t.Fatalf("UpdateForm: %v", err)
	}
	form, err = s.GetForm(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	if len(form.Fields) != 0 {
		t.Errorf("fields = %v, want none", labels(form.Fields))
	}
}

func TestUpdateFormErrors(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.UpdateForm(ctx, 42, model.FormInput{Title: "Nope"})
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Errorf("got %v, want NotFoundError", err)
	}

	created := mustCreate(t, s, model.FormInput{
		Title:  "Keep",
		Fields: []model.FieldInput{{Label: "A", Type: model.FieldText}},
	})

	_, err = s.UpdateForm(ctx, created.ID, model.FormInput{Title: " "})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("got %v, want ValidationError", err)
	}

	// a failing field insert leaves the old form untouched
	_, err = s.UpdateForm(ctx, created.ID, model.FormInput{
		Title:  "Changed",
		Fields: []model.FieldInput{{Label: "Z", Type: "bogus"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown field type")
	}
	form, err := s.GetForm(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	if form.Title != "Keep" || !reflect.DeepEqual(labels(form.Fields), []string{"A"}) {
		t.Errorf("form changed after failed update: %+v", form)
	}
}

func TestUpdateFormLastWriterWins(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created := mustCreate(t, s, model.FormInput{Title: "Race"})

	setA := model.FormInput{Title: "A", Fields: []model.FieldInput{
		{Label: "a1", Type: model.FieldText},
		{Label: "a2", Type: model.FieldText},
	}}
	setB := model.FormInput{Title: "B", Fields: []model.FieldInput{
		{Label: "b1", Type: model.FieldText},
	}}

	if _, err := s.UpdateForm(ctx, created.ID, setA); err != nil {
		t.Fatalf("UpdateForm A: %v", err)
	}
	if _, err := s.UpdateForm(ctx, created.ID, setB); err != nil {
		t.Fatalf("UpdateForm B: %v", err)
	}
	form, err := s.GetForm(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	if got := labels(form.Fields); !reflect.DeepEqual(got, []string{"b1"}) {
		t.Errorf("fields = %v, want [b1]", got)
	}
}

func TestConcurrentUpdatesNeverMix(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created := mustCreate(t, s, model.FormInput{Title: "Race"})

	const writers = 8
	inputs := make([]model.FormInput, writers)
	expected := make(map[string][]string, writers)
	for i := range inputs {
		title := fmt.Sprintf("writer-%d", i)
		var fields []model.FieldInput
		var want []string
		for j := 0; j <= i%3; j++ {
			label := fmt.Sprintf("%s-field-%d", title, j)
			fields = append(fields, model.FieldInput{Label: label, Type: model.FieldText})
			want = append(want, label)
		}
		inputs[i] = model.FormInput{Title: title, Fields: fields}
		expected[title] = want
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range inputs {
		wg.Add(1)
		go func(in model.FormInput) {
			defer wg.Done()
			if _, err := s.UpdateForm(ctx, created.ID, in); err != nil {
				errs <- err
			}
		}(inputs[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("UpdateForm: %v", err)
	}

	form, err := s.GetForm(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	want, ok := expected[form.Title]
	if !ok {
		t.Fatalf("unexpected final title %q", form.Title)
	}
	if got := labels(form.Fields); !reflect.DeepEqual(got, want) {
		t.Errorf("final fields %v do not belong to %q (want %v)", got, form.Title, want)
	}
}

func TestDeleteFormCascades(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created := mustCreate(t, s, model.FormInput{
		Title:  "Doomed",
		Fields: []model.FieldInput{{Label: "Color", Type: model.FieldText}},
	})
	if _, err := s.SubmitResponse(ctx, created.ID, responseInput(t, `{"responses":{"Color":"Red"}}`)); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	deletedID, err := s.DeleteForm(ctx, created.ID)
	if err != nil {
		t.Fatalf("DeleteForm: %v", err)
	}
	if deletedID != created.ID {
		t.Errorf("deletedID = %d, want %d", deletedID, created.ID)
	}

	var nerr *NotFoundError
	if _, err := s.GetForm(ctx, created.ID); !errors.As(err, &nerr) {
		t.Errorf("GetForm after delete: got %v, want NotFoundError", err)
	}
	responses, err := s.ListResponses(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(responses) != 0 {
		t.Errorf("responses = %+v, want none", responses)
	}
	for _, table := range []string{"form_fields", "form_responses", "response_data"} {
		if n := testutil.CountRows(t, s.db, table); n != 0 {
			t.Errorf("%s rows = %d, want 0", table, n)
		}
	}

	if _, err := s.DeleteForm(ctx, created.ID); !errors.As(err, &nerr) {
		t.Errorf("second DeleteForm: got %v, want NotFoundError", err)
	}
}

func TestListFormsOrderAndCounts(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	first := mustCreate(t, s, model.FormInput{Title: "first"})
	second := mustCreate(t, s, model.FormInput{Title: "second"})
	third := mustCreate(t, s, model.FormInput{Title: "third"})

	for i := 0; i < 2; i++ {
		if _, err := s.SubmitResponse(ctx, second.ID, model.NewResponseInput()); err != nil {
			t.Fatalf("SubmitResponse: %v", err)
		}
	}

	forms, err := s.ListForms(ctx, "", "")
	if err != nil {
		t.Fatalf("ListForms: %v", err)
	}
	if len(forms) != 3 {
		t.Fatalf("got %d forms, want 3", len(forms))
	}
	wantIDs := []int64{third.ID, second.ID, first.ID}
	for i, f := range forms {
		if f.ID != wantIDs[i] {
			t.Errorf("forms[%d].ID = %d, want %d", i, f.ID, wantIDs[i])
		}
	}
	if forms[1].ResponseCount != 2 || forms[0].ResponseCount != 0 {
		t.Errorf("counts = %d/%d, want 0/2", forms[0].ResponseCount, forms[1].ResponseCount)
	}

	page, err := s.ListForms(ctx, "1", "1")
	if err != nil {
		t.Fatalf("ListForms page: %v", err)
	}
	if len(page) != 1 || page[0].ID != second.ID {
		t.Errorf("page = %+v, want only %q", page, "second")
	}

	if _, err := s.ListForms(ctx, "ten", "0"); err == nil {
		t.Error("expected a store error for non-numeric limit")
	}
}

func TestListFormsDefaultLimit(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		mustCreate(t, s, model.FormInput{Title: fmt.Sprintf("form %d", i)})
	}

	forms, err := s.ListForms(ctx, "", "")
	if err != nil {
		t.Fatalf("ListForms: %v", err)
	}
	if len(forms) != 10 {
		t.Errorf("got %d forms, want 10", len(forms))
	}
}

func TestSubmitAndListResponses(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created := mustCreate(t, s, model.FormInput{
		Title: "Colors",
		Fields: []model.FieldInput{
			{Label: "Color", Type: model.FieldSelect, Options: model.Options{"Red", "Blue"}},
		},
	})

	resp, err := s.SubmitResponse(ctx, created.ID, responseInput(t, `{"responses":{"Color":"Red"}}`))
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if resp.RespondentName != "Anonymous" {
		t.Errorf("RespondentName = %q, want Anonymous", resp.RespondentName)
	}
	if resp.RespondentEmail != nil {
		t.Errorf("RespondentEmail = %q, want null", *resp.RespondentEmail)
	}
	if resp.FormID != created.ID {
		t.Errorf("FormID = %d, want %d", resp.FormID, created.ID)
	}

	responses, err := s.ListResponses(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	data := responses[0].Data
	if len(data) != 1 || data[0].FieldLabel != "Color" || data[0].FieldValue == nil || *data[0].FieldValue != "Red" {
		t.Errorf("response data = %+v", data)
	}
	if responses[0].ResponseID != resp.ID {
		t.Errorf("ResponseID = %d, want %d", responses[0].ResponseID, resp.ID)
	}
}

func TestSubmitResponseValues(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created := mustCreate(t, s, model.FormInput{
		Title:  "Values",
		Fields: []model.FieldInput{{Label: "Agree", Type: model.FieldCheckbox, Required: true}},
	})

	// labels are not checked against the form and come back in submission order
	in := responseInput(t, `{
		"respondent_name": "Ada",
		"respondent_email": "ada@example.com",
		"responses": {"Zeta": "last letter", "Agree": true, "Count": 3, "Nothing": null, "Off": false}
	}`)
	resp, err := s.SubmitResponse(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if resp.RespondentName != "Ada" || resp.RespondentEmail == nil || *resp.RespondentEmail != "ada@example.com" {
		t.Errorf("respondent = %q / %v", resp.RespondentName, resp.RespondentEmail)
	}

	detail, err := s.GetResponse(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	if detail.FormTitle != "Values" || detail.FormID != created.ID {
		t.Errorf("detail = %+v", detail)
	}

	type pair struct {
		label string
		value any
	}
	var got []pair
	for _, d := range detail.Data {
		var v any
		if d.FieldValue != nil {
			v = *d.FieldValue
		}
		got = append(got, pair{d.FieldLabel, v})
	}
	want := []pair{
		{"Zeta", "last letter"},
		{"Agree", "true"},
		{"Count", "3"},
		{"Nothing", nil},
		{"Off", "false"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("data = %v, want %v", got, want)
	}
}

func TestSubmitResponseUnknownForm(t *testing.T) {
	s := setupService(t)

	_, err := s.SubmitResponse(context.Background(), 404, responseInput(t, `{"responses":{"a":"b"}}`))
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
	if n := testutil.CountRows(t, s.db, "form_responses"); n != 0 {
		t.Errorf("form_responses rows = %d, want 0", n)
	}
}

func TestSubmitResponseRollsBackOnDataFailure(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created := mustCreate(t, s, model.FormInput{Title: "Atomic"})

	_, err := s.db.ExecContext(ctx, `
		CREATE TRIGGER reject_label BEFORE INSERT ON response_data
		WHEN NEW.field_label = 'reject'
		BEGIN SELECT RAISE(ABORT, 'rejected label'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	_, err = s.SubmitResponse(ctx, created.ID, responseInput(t, `{"responses":{"ok":"1","reject":"x"}}`))
	if err == nil {
		t.Fatal("expected error from rejected data row")
	}
	var verr *ValidationError
	var nerr *NotFoundError
	if errors.As(err, &verr) || errors.As(err, &nerr) {
		t.Errorf("store failure surfaced as %T", err)
	}

	if n := testutil.CountRows(t, s.db, "form_responses"); n != 0 {
		t.Errorf("form_responses rows = %d, want 0 after rollback", n)
	}
	if n := testutil.CountRows(t, s.db, "response_data"); n != 0 {
		t.Errorf("response_data rows = %d, want 0 after rollback", n)
	}
}

func TestListResponsesOrderAndEmptyData(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created := mustCreate(t, s, model.FormInput{Title: "Order"})

	empty, err := s.SubmitResponse(ctx, created.ID, model.NewResponseInput())
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	full, err := s.SubmitResponse(ctx, created.ID, responseInput(t, `{"responses":{"x":"1","y":"2"}}`))
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	responses, err := s.ListResponses(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}
	if responses[0].ResponseID != full.ID || responses[1].ResponseID != empty.ID {
		t.Errorf("order = %d, %d; want newest first", responses[0].ResponseID, responses[1].ResponseID)
	}
	if len(responses[0].Data) != 2 || responses[0].Data[0].FieldLabel != "x" || responses[0].Data[1].FieldLabel != "y" {
		t.Errorf("full data = %+v", responses[0].Data)
	}
	if responses[1].Data == nil || len(responses[1].Data) != 0 {
		t.Errorf("empty data = %#v, want empty list", responses[1].Data)
	}

	other, err := s.ListResponses(ctx, created.ID+100)
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("unknown form responses = %+v", other)
	}
}

func TestGetResponseNotFound(t *testing.T) {
	s := setupService(t)

	_, err := s.GetResponse(context.Background(), 77)
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
	if nerr.Error() != "Response not found" {
		t.Errorf("Error() = %q", nerr.Error())
	}
}
