package app

import "errors"

var (
	// ErrInvalidCredentials deliberately covers both wrong-email and
	// wrong-password so the response does not reveal which field failed.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	ErrUsernameLength  = errors.New("username must be between 3 and 20 characters")
	ErrEmailFormat     = errors.New("email must be valid, with more than 2 characters in both the local part and the domain")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrUserExists       = errors.New("a user with this email or username already exists")

	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")

	ErrDateFormat       = errors.New("date must be in YYYY-MM-DD format")
	ErrRequestIncomplete = errors.New("date, address and walker are required")

	ErrMessageRequired = errors.New("message text is required")

	ErrStarsRange       = errors.New("stars must be between 1 and 5")
	ErrWalkNotCompleted = errors.New("only completed walks can be rated")

	ErrDocumentRequired    = errors.New("a document image is required")
	ErrPhoneRequired       = errors.New("a phone number is required")
	ErrDescriptionRequired = errors.New("a description is required")
	ErrApplicationPending  = errors.New("an application is already pending review")
)
