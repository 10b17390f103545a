package service

import (
	"context"
	"database/sql"

	"github.com/mbolis/quick-form/model"
	"github.com/pkg/errors"
)

const (
	DefaultLimit  = "10"
	DefaultOffset = "0"
)

// ListForms returns forms newest first with their response counts.
// limit and offset go to the store as given; a value the store cannot
// read as an integer makes the query fail.
func (s *Service) ListForms(ctx context.Context, limit, offset string) ([]model.FormSummary, error) {
	if limit == "" {
		limit = DefaultLimit
	}
	if offset == "" {
		offset = DefaultOffset
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.title, f.description, f.created_at, f.updated_at,
			COUNT(fr.id) AS response_count
		FROM forms f
		LEFT JOIN form_responses fr ON f.id = fr.form_id
		GROUP BY f.id, f.title, f.description, f.created_at, f.updated_at
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query forms")
	}
	defer rows.Close()

	forms := []model.FormSummary{}
	for rows.Next() {
		f := model.FormSummary{}
		err = rows.Scan(&f.ID, &f.Title, &f.Description, scanTime(&f.CreatedAt), scanTime(&f.UpdatedAt), &f.ResponseCount)
		if err != nil {
			return nil, errors.Wrap(err, "scan form")
		}
		forms = append(forms, f)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate forms")
	}

	return forms, nil
}

// GetForm returns a form with its fields in field_order.
func (s *Service) GetForm(ctx context.Context, id int64) (*model.FormWithFields, error) {
	form := model.FormWithFields{Fields: []model.Field{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, created_at, updated_at
		FROM forms
		WHERE id = $1`,
		id,
	).Scan(&form.ID, &form.Title, &form.Description, scanTime(&form.CreatedAt), scanTime(&form.UpdatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "Form", ID: id}
	}
	if err != nil {
		return nil, errors.Wrap(err, "query form")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, type, options, required, field_order
		FROM form_fields
		WHERE form_id = $1
		ORDER BY field_order ASC`,
		id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query form fields")
	}
	defer rows.Close()

	for rows.Next() {
		f := model.Field{}
		var opts string
		err = rows.Scan(&f.ID, &f.Label, &f.Type, &opts, &f.Required, &f.FieldOrder)
		if err != nil {
			return nil, errors.Wrap(err, "scan form field")
		}
		f.Options = model.SplitOptions(opts)
		form.Fields = append(form.Fields, f)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate form fields")
	}

	return &form, nil
}

// CreateForm inserts a form and its fields in one transaction. Fields take
// their field_order from their position in the input.
func (s *Service) CreateForm(ctx context.Context, in model.FormInput) (*model.Form, error) {
	if err := s.validateForm(in); err != nil {
		return nil, err
	}

	form := model.Form{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO forms (title, description)
			VALUES ($1, $2)
			RETURNING id, title, description, created_at, updated_at`,
			in.Title,
			in.Description,
		).Scan(&form.ID, &form.Title, &form.Description, scanTime(&form.CreatedAt), scanTime(&form.UpdatedAt))
		if err != nil {
			return errors.Wrap(err, "insert form")
		}

		return insertFields(ctx, tx, form.ID, in.Fields)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("formId", form.ID).WithField("fields", len(in.Fields)).Debug("form created")
	return &form, nil
}

// UpdateForm rewrites a form's title and description and replaces its
// whole field set with the given one. Fields left out of the input are gone
// afterwards.
func (s *Service) UpdateForm(ctx context.Context, id int64, in model.FormInput) (*model.Form, error) {
	if err := s.validateForm(in); err != nil {
		return nil, err
	}

	form := model.Form{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE forms
			SET title = $1, description = $2, updated_at = CURRENT_TIMESTAMP
			WHERE id = $3
			RETURNING id, title, description, created_at, updated_at`,
			in.Title,
			in.Description,
			id,
		).Scan(&form.ID, &form.Title, &form.Description, scanTime(&form.CreatedAt), scanTime(&form.UpdatedAt))
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "Form", ID: id}
		}
		if err != nil {
			return errors.Wrap(err, "update form")
		}

		// delete all fields
		_, err = tx.ExecContext(ctx, `DELETE FROM form_fields WHERE form_id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "delete form fields")
		}

		// recreate all fields
		return insertFields(ctx, tx, id, in.Fields)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("formId", id).WithField("fields", len(in.Fields)).Debug("form updated")
	return &form, nil
}

// DeleteForm removes a form. Its fields and responses go with it through
// the store's cascading foreign keys.
func (s *Service) DeleteForm(ctx context.Context, id int64) (int64, error) {
	var deletedID int64
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM forms WHERE id = $1
		RETURNING id`,
		id,
	).Scan(&deletedID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotFoundError{Entity: "Form", ID: id}
	}
	if err != nil {
		return 0, errors.Wrap(err, "delete form")
	}

	s.log.WithField("formId", id).Debug("form deleted")
	return deletedID, nil
}

func (s *Service) validateForm(in model.FormInput) error {
	if err := s.validate.Struct(in); err != nil {
		return &ValidationError{Message: "Form title is required"}
	}
	return nil
}

func insertFields(ctx context.Context, tx *sql.Tx, formID int64, fields []model.FieldInput) error {
	if len(fields) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO form_fields (form_id, label, type, options, required, field_order)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return errors.Wrap(err, "prepare field insert")
	}
	defer stmt.Close()

	for i, f := range fields {
		_, err = stmt.ExecContext(ctx, formID, f.Label, f.Type, f.Options.Join(), f.Required, i)
		if err != nil {
			return errors.Wrapf(err, "insert field %d", i)
		}
	}
	return nil
}
