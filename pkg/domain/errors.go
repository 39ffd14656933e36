package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound              = errors.New("user not found")
	ErrUserAlreadyExists         = errors.New("user already exists")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrAccountLocked             = errors.New("account locked due to too many failed login attempts")
	ErrSessionNotFound           = errors.New("session not found")
	ErrSessionExpired            = errors.New("session expired")
	ErrSessionRevoked            = errors.New("session revoked")
	ErrSessionFingerprint        = errors.New("session fingerprint mismatch - possible token theft")
	ErrInvalidToken              = errors.New("invalid token")
	ErrIdentityNotFound          = errors.New("identity not found")
	ErrVerificationTokenNotFound = errors.New("verification token not found")
	ErrVerificationTokenExpired  = errors.New("verification token expired")
	ErrVerificationTokenConsumed = errors.New("verification token already used")
	ErrVerificationTokenInvalid  = errors.New("invalid verification token")
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// Onboarding errors
var (
	ErrInvalidAccountType   = errors.New("invalid account type")
	ErrAccountTypeConfirmed = errors.New("account type already confirmed")
	ErrPasswordAlreadySet   = errors.New("password already set for this account")
	ErrPasswordNotSet       = errors.New("no password set for this account")
)

// Consent errors
var (
	ErrUnknownConsentDocument = errors.New("unknown consent document")
	ErrStaleConsentVersion    = errors.New("consent version is not the current one")
)

// Phone verification errors
var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrPhoneCodeInvalid   = errors.New("invalid verification code")
	ErrPhoneCodeExpired   = errors.New("verification code expired or not requested")
	ErrPhoneSendLimit     = errors.New("daily verification code limit reached")
	ErrPhoneAttemptLimit  = errors.New("too many failed verification attempts")
	ErrSMSUnavailable     = errors.New("sms delivery temporarily unavailable")
)
