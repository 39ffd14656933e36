package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// PasswordPolicyConfig holds password complexity requirements.
type PasswordPolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// RateLimitConfig holds rate limiting configuration per endpoint class.
type RateLimitConfig struct {
	Enabled bool

	AuthRequestsPerMinute int
	AuthWindowMinutes     int

	ResetRequestsPerWindow int
	ResetWindowMinutes     int

	RefreshRequestsPerMinute int
	RefreshWindowMinutes     int

	ProfileRequestsPerMinute int
	ProfileWindowMinutes     int

	PhoneRequestsPerWindow int
	PhoneWindowMinutes     int
}

// SecurityHeadersConfig holds security header configuration.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// ValidationConfig holds request validation configuration.
type ValidationConfig struct {
	MaxRequestBodySize    int64
	StrictEmailValidation bool
	BlockDisposableEmail  bool
}

// SessionSecurityConfig holds session hardening configuration.
type SessionSecurityConfig struct {
	FingerprintEnabled bool
	DetectReuse        bool
}

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// AppBaseURL is the SPA origin. Password reset links and post-login
	// redirects never leave it.
	AppBaseURL   string
	CookieSecure bool

	PasswordResetTTL time.Duration

	// Consent document versions currently in force (ISO dates).
	TermsVersion   string
	PrivacyVersion string

	// Phone verification
	PhoneCodeTTL        time.Duration
	PhoneMaxSendsPerDay int
	PhoneMaxAttempts    int

	// Redis (required for phone verification)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Twilio (optional; without it codes are logged instead of sent)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// SMTP (optional)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	PasswordPolicy  PasswordPolicyConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
	SessionSecurity SessionSecurityConfig
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "vocaid_identity"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT defaults
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "vocaid-identity"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:3000"),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		PasswordResetTTL: getEnvDuration("PASSWORD_RESET_TTL", 30*time.Minute),

		TermsVersion:   getEnv("CONSENT_TERMS_VERSION", "2026-01-15"),
		PrivacyVersion: getEnv("CONSENT_PRIVACY_VERSION", "2026-01-15"),

		PhoneCodeTTL:        getEnvDuration("PHONE_CODE_TTL", 5*time.Minute),
		PhoneMaxSendsPerDay: getEnvInt("PHONE_MAX_SENDS_PER_DAY", 5),
		PhoneMaxAttempts:    getEnvInt("PHONE_MAX_ATTEMPTS", 5),

		// Redis (optional)
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// Twilio (optional)
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		// SMTP (optional)
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Vocaid"),

		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 8),
			RequireUppercase: getEnvBool("PASSWORD_REQUIRE_UPPERCASE", true),
			RequireLowercase: getEnvBool("PASSWORD_REQUIRE_LOWERCASE", true),
			RequireNumber:    getEnvBool("PASSWORD_REQUIRE_NUMBER", true),
			RequireSpecial:   getEnvBool("PASSWORD_REQUIRE_SPECIAL", false),
		},

		RateLimit: RateLimitConfig{
			Enabled:                  getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequestsPerMinute:    getEnvInt("RATE_LIMIT_AUTH_RPM", 10),
			AuthWindowMinutes:        getEnvInt("RATE_LIMIT_AUTH_WINDOW", 1),
			ResetRequestsPerWindow:   getEnvInt("RATE_LIMIT_RESET_REQUESTS", 3),
			ResetWindowMinutes:       getEnvInt("RATE_LIMIT_RESET_WINDOW", 15),
			RefreshRequestsPerMinute: getEnvInt("RATE_LIMIT_REFRESH_RPM", 60),
			RefreshWindowMinutes:     getEnvInt("RATE_LIMIT_REFRESH_WINDOW", 1),
			ProfileRequestsPerMinute: getEnvInt("RATE_LIMIT_PROFILE_RPM", 60),
			ProfileWindowMinutes:     getEnvInt("RATE_LIMIT_PROFILE_WINDOW", 1),
			PhoneRequestsPerWindow:   getEnvInt("RATE_LIMIT_PHONE_REQUESTS", 10),
			PhoneWindowMinutes:       getEnvInt("RATE_LIMIT_PHONE_WINDOW", 15),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 0),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			XSSProtection:      getEnv("SECURITY_XSS_PROTECTION", "1; mode=block"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", "geolocation=(), camera=()"),
		},

		Validation: ValidationConfig{
			MaxRequestBodySize:    getEnvInt64("MAX_REQUEST_BODY_SIZE", 1<<20),
			StrictEmailValidation: getEnvBool("STRICT_EMAIL_VALIDATION", true),
			BlockDisposableEmail:  getEnvBool("BLOCK_DISPOSABLE_EMAILS", false),
		},

		SessionSecurity: SessionSecurityConfig{
			FingerprintEnabled: getEnvBool("SESSION_FINGERPRINT_ENABLED", true),
			DetectReuse:        getEnvBool("SESSION_DETECT_REUSE", false),
		},
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// HasSMTP returns true if SMTP is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// HasRedis returns true if Redis is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

// HasTwilio returns true if Twilio is configured.
func (c *Config) HasTwilio() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
