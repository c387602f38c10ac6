package errs

// Error codes grouped by area: 11xx auth, 12xx membership/authorization,
// 13xx message validation, 14xx lookups, 15xx connection lifecycle,
// 19xx internal.
var (
	ErrAuthenticationFailed = NewCodeError(1101, "authentication failed")
	ErrInvalidCredentials   = NewCodeError(1102, "invalid credentials")
	ErrAccountLocked        = NewCodeError(1103, "account temporarily locked")
	ErrPasswordTooWeak      = NewCodeError(1104, "password too weak")
	ErrPhoneExists          = NewCodeError(1105, "phone already registered")
	ErrEmailExists          = NewCodeError(1106, "email already registered")
	ErrUsernameExists       = NewCodeError(1107, "username already taken")

	ErrNotAMember = NewCodeError(1201, "not a member of conversation")
	ErrForbidden  = NewCodeError(1202, "operation not allowed")

	ErrEmptyContent   = NewCodeError(1301, "message content is empty")
	ErrInvalidUser    = NewCodeError(1302, "invalid user")
	ErrInvalidName    = NewCodeError(1303, "invalid name")
	ErrTooManyMembers = NewCodeError(1304, "too many members")

	ErrNotFound = NewCodeError(1404, "record not found")

	ErrSuperseded = NewCodeError(1501, "connection superseded")

	ErrInternal = NewCodeError(1900, "internal error")
)
