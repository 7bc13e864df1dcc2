package service

import (
	"errors"

	"backoffice/internal/apperr"
	"backoffice/internal/store"
)

// Client-facing messages
const (
	msgServerError        = "Server error"
	msgMissingFields      = "Missing fields"
	msgMissingRequired    = "Missing required fields"
	msgMissingCustomer    = "Missing customer fields"
	msgInvalidItem        = "Invalid order item"
	msgNameRequired       = "Name is required"
	msgInvalidBody        = "Invalid request body"
	msgEmailInUse         = "Email already in use"
	msgCPFInUse           = "CPF already registered"
	msgInvalidCredentials = "Invalid credentials"
	msgUserNotFound       = "User not found"
	msgProductNotFound    = "Product not found"
	msgOrderNotFound      = "Order not found"
)

// storeError maps a persistence failure onto the application taxonomy
func storeError(err error, notFound string) error {
	if err == nil {
		return nil
	}

	var dup *store.DuplicateError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, notFound, err)
	case errors.As(err, &dup):
		if dup.Field() == "cpf" {
			return apperr.Wrap(apperr.KindDuplicateCPF, msgCPFInUse, err)
		}
		return apperr.Wrap(apperr.KindDuplicateEmail, msgEmailInUse, err)
	default:
		return apperr.Internal(msgServerError, err)
	}
}
