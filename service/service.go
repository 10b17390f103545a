package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Service reads and writes forms, their fields and their responses.
// It holds no state of its own besides the pool and the logger.
type Service struct {
	db       *sql.DB
	log      logrus.FieldLogger
	validate *validator.Validate
}

func New(db *sql.DB, logger logrus.FieldLogger) *Service {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}

	return &Service{
		db:       db,
		log:      logger,
		validate: validate,
	}
}

// withTx runs fn inside a single transaction. The transaction is rolled
// back whenever fn fails, and its connection goes back to the pool on
// every path.
func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "commit transaction")
}
