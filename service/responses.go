package service

import (
	"context"
	"database/sql"

	"github.com/mbolis/quick-form/model"
	"github.com/pkg/errors"
)

// SubmitResponse stores one submission against a form. Values are not
// checked against the form's fields: unknown labels are kept and required
// fields may be missing.
func (s *Service) SubmitResponse(ctx context.Context, formID int64, in model.ResponseInput) (*model.Response, error) {
	name := in.RespondentName
	if name == "" {
		name = model.AnonymousRespondent
	}
	var email *string
	if in.RespondentEmail != "" {
		email = &in.RespondentEmail
	}

	resp := model.Response{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM forms WHERE id = $1`, formID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "Form", ID: formID}
		}
		if err != nil {
			return errors.Wrap(err, "query form")
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO form_responses (form_id, respondent_name, respondent_email)
			VALUES ($1, $2, $3)
			RETURNING id, form_id, respondent_name, respondent_email, submitted_at`,
			formID,
			name,
			email,
		).Scan(&resp.ID, &resp.FormID, &resp.RespondentName, &resp.RespondentEmail, scanTime(&resp.SubmittedAt))
		if err != nil {
			return errors.Wrap(err, "insert response")
		}

		if in.Responses == nil || in.Responses.Len() == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO response_data (response_id, field_label, field_value)
			VALUES ($1, $2, $3)`)
		if err != nil {
			return errors.Wrap(err, "prepare response data insert")
		}
		defer stmt.Close()

		for pair := in.Responses.Oldest(); pair != nil; pair = pair.Next() {
			value, err := model.FieldValue(pair.Value)
			if err != nil {
				return errors.Wrapf(err, "encode value of %q", pair.Key)
			}
			_, err = stmt.ExecContext(ctx, resp.ID, pair.Key, value)
			if err != nil {
				return errors.Wrapf(err, "insert response data %q", pair.Key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("formId", formID).WithField("responseId", resp.ID).Debug("response submitted")
	return &resp, nil
}

// ListResponses returns every response to a form, most recent first, each
// with its label/value pairs in submission order.
func (s *Service) ListResponses(ctx context.Context, formID int64) ([]model.ResponseSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			fr.id, fr.submitted_at, fr.respondent_name, fr.respondent_email,
			rd.field_label, rd.field_value
		FROM form_responses fr
		LEFT JOIN response_data rd ON fr.id = rd.response_id
		WHERE fr.form_id = $1
		ORDER BY fr.submitted_at DESC, fr.id DESC, rd.id ASC`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query responses")
	}
	defer rows.Close()

	responses := []model.ResponseSummary{}
	for rows.Next() {
		r := model.ResponseSummary{}
		var label sql.NullString
		var value *string
		err = rows.Scan(&r.ResponseID, scanTime(&r.SubmittedAt), &r.RespondentName, &r.RespondentEmail, &label, &value)
		if err != nil {
			return nil, errors.Wrap(err, "scan response")
		}

		last := len(responses) - 1
		if last < 0 || responses[last].ResponseID != r.ResponseID {
			r.Data = []model.ResponseData{}
			responses = append(responses, r)
			last++
		}
		if label.Valid {
			responses[last].Data = append(responses[last].Data, model.ResponseData{
				FieldLabel: label.String,
				FieldValue: value,
			})
		}
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate responses")
	}

	return responses, nil
}

// GetResponse returns one response with its form's title and its data.
func (s *Service) GetResponse(ctx context.Context, id int64) (*model.ResponseDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			fr.id, fr.form_id, fr.submitted_at, fr.respondent_name, fr.respondent_email,
			f.title, rd.field_label, rd.field_value
		FROM form_responses fr
		LEFT JOIN forms f ON fr.form_id = f.id
		LEFT JOIN response_data rd ON fr.id = rd.response_id
		WHERE fr.id = $1
		ORDER BY rd.id ASC`,
		id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query response")
	}
	defer rows.Close()

	var detail *model.ResponseDetail
	for rows.Next() {
		r := model.ResponseDetail{Data: []model.ResponseData{}}
		var title, label sql.NullString
		var value *string
		err = rows.Scan(
			&r.ID, &r.FormID, scanTime(&r.SubmittedAt), &r.RespondentName, &r.RespondentEmail,
			&title, &label, &value,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan response")
		}

		if detail == nil {
			r.FormTitle = title.String
			detail = &r
		}
		if label.Valid {
			detail.Data = append(detail.Data, model.ResponseData{
				FieldLabel: label.String,
				FieldValue: value,
			})
		}
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate response")
	}

	if detail == nil {
		return nil, &NotFoundError{Entity: "Response", ID: id}
	}
	return detail, nil
}
