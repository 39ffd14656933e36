package auth

import (
	"context"
	"encoding/base32"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/hotp"

	"github.com/vocaid/identity/pkg/domain"
	"github.com/vocaid/identity/pkg/sms"
)

// PhoneChallenge is the pending verification state for one user. The code
// itself is never stored; it is re-derived from Secret and Counter.
type PhoneChallenge struct {
	Phone   string `json:"phone"`
	Secret  string `json:"secret"`
	Counter uint64 `json:"counter"`
}

// ChallengeStore persists phone challenges and their counters. Implemented
// by the Redis-backed store; tests use an in-memory fake.
type ChallengeStore interface {
	SaveChallenge(ctx context.Context, userID uuid.UUID, ch *PhoneChallenge, ttl time.Duration) error
	GetChallenge(ctx context.Context, userID uuid.UUID) (*PhoneChallenge, error)
	DeleteChallenge(ctx context.Context, userID uuid.UUID) error
	IncrSendCount(ctx context.Context, userID uuid.UUID) (int64, error)
	IncrAttempts(ctx context.Context, userID uuid.UUID, ttl time.Duration) (int64, error)
}

// UserPhoneStore marks verified numbers on the user record. Satisfied by
// repository.UsersRepository.
type UserPhoneStore interface {
	SetPhoneVerified(ctx context.Context, userID uuid.UUID, phone string) error
}

// PhoneConfig holds phone verification settings.
type PhoneConfig struct {
	CodeTTL        time.Duration
	MaxSendsPerDay int
	MaxAttempts    int
}

// E.164: plus sign, then 7 to 15 digits, no leading zero.
var phoneRegex = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

var phoneSeparators = regexp.MustCompile(`[\s().-]`)

// NormalizePhone strips the separators people paste along with a number
// ("+1 (415) 555-0123" -> "+14155550123"). It does not validate.
func NormalizePhone(phone string) string {
	return phoneSeparators.ReplaceAllString(phone, "")
}

// PhoneService verifies phone numbers with one-time codes sent over SMS.
// Codes are HOTP-derived from a per-challenge secret, so a resend advances
// the counter and invalidates the previous code.
type PhoneService struct {
	config PhoneConfig
	users  UserPhoneStore
	store  ChallengeStore
	sender sms.Client
	logger *slog.Logger
}

// NewPhoneService creates a new phone verification service.
func NewPhoneService(config PhoneConfig, users UserPhoneStore, store ChallengeStore, sender sms.Client, logger *slog.Logger) *PhoneService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PhoneService{
		config: config,
		users:  users,
		store:  store,
		sender: sender,
		logger: logger,
	}
}

// RequestCode sends a verification code to the given number. Requesting
// again for the same number advances the HOTP counter; the old code stops
// working. The daily send counter counts requests, not deliveries.
func (s *PhoneService) RequestCode(ctx context.Context, userID uuid.UUID, phone string) error {
	phone = NormalizePhone(phone)
	if !phoneRegex.MatchString(phone) {
		return domain.ErrInvalidPhoneNumber
	}

	sends, err := s.store.IncrSendCount(ctx, userID)
	if err != nil {
		return err
	}
	if sends > int64(s.config.MaxSendsPerDay) {
		return domain.ErrPhoneSendLimit
	}

	ch, err := s.nextChallenge(ctx, userID, phone)
	if err != nil {
		return err
	}

	code, err := hotp.GenerateCode(ch.Secret, ch.Counter)
	if err != nil {
		return fmt.Errorf("failed to derive code: %w", err)
	}

	if err := s.store.SaveChallenge(ctx, userID, ch, s.config.CodeTTL); err != nil {
		return err
	}

	body := fmt.Sprintf("Your Vocaid verification code is %s", code)
	if err := s.sender.Send(ctx, phone, body); err != nil {
		s.logger.Error("failed to send verification code", "user_id", userID, "error", err)
		// The stored challenge is useless if the code never arrived.
		_ = s.store.DeleteChallenge(ctx, userID)
		return domain.ErrSMSUnavailable
	}

	return nil
}

// VerifyCode checks a submitted code against the pending challenge and, on
// success, marks the phone verified on the user record.
func (s *PhoneService) VerifyCode(ctx context.Context, userID uuid.UUID, code string) error {
	ch, err := s.store.GetChallenge(ctx, userID)
	if err != nil {
		return err
	}

	attempts, err := s.store.IncrAttempts(ctx, userID, s.config.CodeTTL)
	if err != nil {
		return err
	}
	if attempts > int64(s.config.MaxAttempts) {
		_ = s.store.DeleteChallenge(ctx, userID)
		return domain.ErrPhoneAttemptLimit
	}

	expected, err := hotp.GenerateCode(ch.Secret, ch.Counter)
	if err != nil {
		return fmt.Errorf("failed to derive code: %w", err)
	}
	if !constantTimeCompare([]byte(code), []byte(expected)) {
		return domain.ErrPhoneCodeInvalid
	}

	if err := s.users.SetPhoneVerified(ctx, userID, ch.Phone); err != nil {
		return err
	}

	return s.store.DeleteChallenge(ctx, userID)
}

// nextChallenge reuses the pending challenge's secret for a resend to the
// same number, advancing the counter. Any other case starts fresh.
func (s *PhoneService) nextChallenge(ctx context.Context, userID uuid.UUID, phone string) (*PhoneChallenge, error) {
	existing, err := s.store.GetChallenge(ctx, userID)
	if err == nil && existing.Phone == phone {
		return &PhoneChallenge{
			Phone:   phone,
			Secret:  existing.Secret,
			Counter: existing.Counter + 1,
		}, nil
	}

	secret := make([]byte, 20)
	if _, err := randomBytes(secret); err != nil {
		return nil, err
	}

	return &PhoneChallenge{
		Phone:   phone,
		Secret:  base32.StdEncoding.EncodeToString(secret),
		Counter: 1,
	}, nil
}
