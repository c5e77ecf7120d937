package usecase

import "errors"

// Domain error taxonomy. The HTTP adapter maps these (and the repository
// sentinels they wrap or accompany) onto status codes; nothing is swallowed
// between here and the responder.
var (
	ErrValidation         = errors.New("invalid input")
	ErrDuplicateBoth      = errors.New("both email and mobile number are already in use")
	ErrInvalidCode        = errors.New("invalid activation code")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("please verify your email before logging in")
	ErrUnauthorized       = errors.New("please login to access this resource")
	ErrForbidden          = errors.New("admin access required")
	ErrUpstream           = errors.New("upstream service failure")
)
