package service

import (
	"errors"

	"backoffice/internal/apperr"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// bindingMessager lets a request pick the client message for its failed
// binding rules
type bindingMessager interface {
	bindingMessage(errs validator.ValidationErrors) string
}

// BindingError turns a failed bind of req into a 400. Broken JSON is
// reported as such; rule failures use the message of the request type.
func BindingError(req interface{}, err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperr.Wrap(apperr.KindValidation, msgInvalidBody, err)
	}

	msg := msgMissingFields
	if m, ok := req.(bindingMessager); ok {
		msg = m.bindingMessage(errs)
	}
	return apperr.Wrap(apperr.KindValidation, msg, err)
}

// checkBinding applies the binding tags of req for callers that did not go
// through gin
func checkBinding(req interface{}) error {
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return BindingError(req, err)
	}
	return nil
}
