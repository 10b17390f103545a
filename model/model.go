package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Field types accepted by the store.
const (
	FieldText     = "text"
	FieldEmail    = "email"
	FieldNumber   = "number"
	FieldTextarea = "textarea"
	FieldSelect   = "select"
	FieldRadio    = "radio"
	FieldCheckbox = "checkbox"
)

const AnonymousRespondent = "Anonymous"

type Form struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FormSummary is a row of the form listing.
type FormSummary struct {
	Form
	ResponseCount int64 `json:"response_count"`
}

type FormWithFields struct {
	Form
	Fields []Field `json:"fields"`
}

type Field struct {
	ID         int64    `json:"id"`
	Label      string   `json:"label"`
	Type       string   `json:"type"`
	Options    []string `json:"options"`
	Required   bool     `json:"required"`
	FieldOrder int      `json:"field_order"`
}

type FormInput struct {
	Title       string       `json:"title" validate:"required,notblank"`
	Description string       `json:"description"`
	Fields      []FieldInput `json:"fields"`
}

type FieldInput struct {
	Label    string  `json:"label"`
	Type     string  `json:"type"`
	Options  Options `json:"options"`
	Required bool    `json:"required"`
}

// Options is the choice list of a select or radio field. Clients may send
// it either as a list or as an already comma-joined string; it is stored
// comma-joined, so an option containing a comma does not survive a round
// trip intact.
type Options []string

func (o *Options) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*o = nil
	case string:
		*o = SplitOptions(v)
	case []any:
		opts := make(Options, len(v))
		for i, item := range v {
			switch item := item.(type) {
			case nil:
				opts[i] = ""
			case string:
				opts[i] = item
			default:
				opts[i] = fmt.Sprint(item)
			}
		}
		*o = opts
	default:
		return fmt.Errorf("options: expected list or string, got %T", raw)
	}
	return nil
}

// Join renders the options in their stored form.
func (o Options) Join() string {
	return strings.Join(o, ",")
}

// SplitOptions parses the stored form back into a list. An empty string
// yields an empty, non-nil list.
func SplitOptions(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

type Response struct {
	ID              int64     `json:"id"`
	FormID          int64     `json:"form_id"`
	RespondentName  string    `json:"respondent_name"`
	RespondentEmail *string   `json:"respondent_email"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

type ResponseData struct {
	FieldLabel string  `json:"field_label"`
	FieldValue *string `json:"field_value"`
}

// ResponseSummary is a row of a form's response listing.
type ResponseSummary struct {
	ResponseID      int64          `json:"response_id"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	RespondentName  string         `json:"respondent_name"`
	RespondentEmail *string        `json:"respondent_email"`
	Data            []ResponseData `json:"response_data"`
}

type ResponseDetail struct {
	Response
	FormTitle string         `json:"form_title"`
	Data      []ResponseData `json:"response_data"`
}

// ResponseInput is a respondent's submission. Responses keeps the order in
// which the client sent the labels.
type ResponseInput struct {
	Responses       *orderedmap.OrderedMap[string, any] `json:"responses"`
	RespondentName  string                              `json:"respondent_name"`
	RespondentEmail string                              `json:"respondent_email"`
}

func NewResponseInput() ResponseInput {
	return ResponseInput{Responses: orderedmap.New[string, any]()}
}

// FieldValue converts a submitted value to its stored text. Booleans become
// "true"/"false", numbers their shortest decimal form, and lists or objects
// their JSON encoding. A null value is stored as NULL.
func FieldValue(v any) (*string, error) {
	var s string
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = v
	case bool:
		s = strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		s = string(b)
	}
	return &s, nil
}
