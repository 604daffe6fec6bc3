package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every input validation failure.
	ErrValidation = errors.New("validation failed")

	ErrCredentialsRequired = fmt.Errorf("%w: username and password are required", ErrValidation)
	ErrPasswordsRequired   = fmt.Errorf("%w: old and new password are required", ErrValidation)
	ErrPasswordTooShort    = fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	ErrPasswordTooLong     = fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, MaxPasswordLength)
	ErrGiftFieldsRequired  = fmt.Errorf("%w: gift name and amount are required", ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("%w: amount must have at most %d integer digits and %d decimal places", ErrValidation, maxAmountIntegerDigits, maxAmountScale)

	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)

	// ErrUsernameTaken is returned when attempting to register with an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	ErrGiftNotFound = errors.New("gift not found")
	// ErrForbidden means the gift exists but belongs to another user's event.
	ErrForbidden = errors.New("gift belongs to another user")

	// ErrNoRecords is returned by Clear when there is nothing to clear.
	ErrNoRecords   = errors.New("no records to clear")
	ErrNoEvent     = fmt.Errorf("%w: default event not created yet", ErrNoRecords)
	ErrLedgerEmpty = fmt.Errorf("%w: ledger is empty", ErrNoRecords)

	// ErrLedgerChanged means gifts kept changing while a clear was archiving them.
	ErrLedgerChanged = errors.New("ledger changed during archive")
)
