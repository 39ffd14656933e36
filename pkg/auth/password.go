package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/repository"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// PasswordService handles password registration and authentication.
type PasswordService struct {
	db                    *sql.DB
	users                 *repository.UsersRepository
	creds                 *repository.CredentialsRepository
	policy                *PasswordPolicy
	strictEmailValidation bool
	blockDisposableEmail  bool
}

// NewPasswordService creates a new password service.
func NewPasswordService(db *sql.DB, users *repository.UsersRepository, creds *repository.CredentialsRepository, policy *PasswordPolicy, strictEmailValidation, blockDisposableEmail bool) *PasswordService {
	return &PasswordService{
		db:                    db,
		users:                 users,
		creds:                 creds,
		policy:                policy,
		strictEmailValidation: strictEmailValidation,
		blockDisposableEmail:  blockDisposableEmail,
	}
}

// Register creates a new user with password credentials. The user starts
// with no confirmed account type and no consent records, so onboarding
// routes them through those steps on first sign-in.
func (s *PasswordService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	if err := ValidateEmail(email, s.strictEmailValidation, s.blockDisposableEmail); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)

	if s.policy != nil {
		if err := s.policy.ValidatePassword(password); err != nil {
			return nil, err
		}
	}

	name = SanitizeName(name)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name != "" {
		user.Name = &name
	}

	cred := &domain.UserPassword{
		UserID:            user.ID,
		PasswordHash:      hash,
		PasswordUpdatedAt: now,
	}

	err = repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.users.CreateTx(ctx, tx, user); err != nil {
			return err
		}
		return s.creds.CreateTx(ctx, tx, cred)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies email and password, returning the user ID on success.
// Implements account lockout after 5 failed attempts with 15-minute lockout duration.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (uuid.UUID, error) {
	const (
		maxFailedAttempts = 5
		lockoutDuration   = 15 * time.Minute
	)

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return uuid.Nil, domain.ErrInvalidCredentials
		}
		return uuid.Nil, err
	}

	if user.IsLocked() {
		return uuid.Nil, domain.ErrAccountLocked
	}

	cred, err := s.creds.GetByUserID(ctx, user.ID)
	if err != nil {
		// Federated-only accounts have no password credential.
		if errors.Is(err, domain.ErrPasswordNotSet) {
			return uuid.Nil, domain.ErrInvalidCredentials
		}
		return uuid.Nil, err
	}

	if !VerifyPassword(password, cred.PasswordHash) {
		_ = s.users.IncrementFailedLoginAttempts(ctx, user.ID, lockoutDuration, maxFailedAttempts)
		return uuid.Nil, domain.ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		_ = s.users.ResetFailedLoginAttempts(ctx, user.ID)
	}

	return user.ID, nil
}

// HasPassword reports whether the user has a password credential.
func (s *PasswordService) HasPassword(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.creds.ExistsByUserID(ctx, userID)
}

// SetPassword adds a password credential to an account that has none. This
// is the optional onboarding step for users who signed up through a
// federated provider. Returns ErrPasswordAlreadySet if one exists.
func (s *PasswordService) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if s.policy != nil {
		if err := s.policy.ValidatePassword(password); err != nil {
			return err
		}
	}

	exists, err := s.creds.ExistsByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrPasswordAlreadySet
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	return s.creds.Create(ctx, &domain.UserPassword{
		UserID:            userID,
		PasswordHash:      hash,
		PasswordUpdatedAt: time.Now(),
	})
}

// ChangePassword replaces the user's password, creating the credential if
// none exists. Used by the reset flow, which must also work for federated
// accounts adding a password through a reset link.
func (s *PasswordService) ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if s.policy != nil {
		if err := s.policy.ValidatePassword(newPassword); err != nil {
			return err
		}
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.creds.Update(ctx, userID, hash)
	if errors.Is(err, domain.ErrPasswordNotSet) {
		return s.creds.Create(ctx, &domain.UserPassword{
			UserID:            userID,
			PasswordHash:      hash,
			PasswordUpdatedAt: time.Now(),
		})
	}
	return err
}

// GetUserByEmail retrieves a user by email address.
func (s *PasswordService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, NormalizeEmail(email))
}

// GetUserByID retrieves a user by ID.
func (s *PasswordService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := randomBytes(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// Encode as: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return encodeArgon2Hash(hash, salt, argon2Time, argon2Memory, argon2Threads), nil
}

// VerifyPassword verifies a password against an Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	hash, salt, time, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}
