package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	KeyStorageEphemeral  = "ephemeral"
	KeyStoragePersistent = "persistent"
)

type Config struct {
	Issuer       string `validate:"required,url"`
	PairwiseSalt string `validate:"required"`
	LoginURL     string `validate:"required"`

	AuthCodeValidity   time.Duration `validate:"gt=0"`
	SessionTimeout     time.Duration `validate:"gt=0"`
	MaxStateLength     int           `validate:"gt=0"`
	MaxNonceLength     int           `validate:"gt=0"`
	AllowHTTPLocalhost bool
	CookieSecure       bool

	WebAuthnRPID             string        `validate:"required,hostname_rfc1123"`
	WebAuthnRPName           string        `validate:"required"`
	WebAuthnOrigins          []string      `validate:"required,min=1,dive,url"`
	WebAuthnChallengeTimeout time.Duration `validate:"gt=0"`
	WebAuthnStrictSignCount  bool

	Algorithm      string `validate:"oneof=RS256 ES256 EdDSA"`
	RSABits        int    `validate:"omitempty,min=2048"`
	KeyStorageMode string `validate:"oneof=ephemeral persistent"`

	// Persistent mode reads the key-encryption secret from MasterKeyPath,
	// falling back to MasterKey.
	MasterKeyPath string
	MasterKey     string

	DatabaseFile         string `validate:"required"`
	Env                  string `validate:"oneof=dev staging prod"`
	LogLevel             string
	LogFormat            string `validate:"oneof=json text"`
	Port                 int    `validate:"min=1,max=65535"`
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration `validate:"gt=0"`
}

// LoadConfig reads the environment, after loading a .env file when one is
// present in the working directory.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Issuer:       strings.TrimSuffix(getEnvOrDefault("NP_ISSUER", "http://localhost:8080"), "/"),
		PairwiseSalt: os.Getenv("NP_PAIRWISE_SALT"),
		LoginURL:     getEnvOrDefault("NP_LOGIN_URL", "/login"),

		AuthCodeValidity:   getEnvDurationOrDefault("NP_AUTH_CODE_VALIDITY", service.DefaultCodeValidity),
		SessionTimeout:     getEnvDurationOrDefault("NP_SESSION_TIMEOUT", service.DefaultSessionTimeout),
		MaxStateLength:     getEnvIntOrDefault("NP_MAX_STATE_LENGTH", service.DefaultMaxState),
		MaxNonceLength:     getEnvIntOrDefault("NP_MAX_NONCE_LENGTH", service.DefaultMaxNonce),
		AllowHTTPLocalhost: getEnvBoolOrDefault("NP_ALLOW_HTTP_LOCALHOST", true),
		CookieSecure:       getEnvBoolOrDefault("NP_COOKIE_SECURE", false),

		WebAuthnRPID:             getEnvOrDefault("NP_WEBAUTHN_RP_ID", "localhost"),
		WebAuthnRPName:           getEnvOrDefault("NP_WEBAUTHN_RP_NAME", "nullprofile"),
		WebAuthnOrigins:          splitList(getEnvOrDefault("NP_WEBAUTHN_ORIGIN", "http://localhost:8080")),
		WebAuthnChallengeTimeout: getEnvDurationOrDefault("NP_WEBAUTHN_CHALLENGE_TIMEOUT", service.DefaultChallengeTimeout),
		WebAuthnStrictSignCount:  getEnvBoolOrDefault("NP_WEBAUTHN_STRICT_SIGN_COUNT", false),

		Algorithm:      getEnvOrDefault("NP_ALGORITHM", "RS256"),
		RSABits:        getEnvIntOrDefault("NP_RSA_BITS", 2048),
		KeyStorageMode: getEnvOrDefault("NP_KEY_STORAGE_MODE", KeyStorageEphemeral),
		MasterKeyPath:  os.Getenv("NP_MASTER_KEY_PATH"),
		MasterKey:      os.Getenv("NP_MASTER_KEY"),

		DatabaseFile:         getEnvOrDefault("NP_DATABASE_FILE", "nullprofile.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", service.DefaultHousekeepingInterval),
	}

	return cfg, cfg.Validate()
}

// Validate checks the struct tags plus the rules that span fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.PairwiseSalt) == "" {
		return fmt.Errorf("invalid configuration: NP_PAIRWISE_SALT: %w", service.ErrMissingSalt)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.KeyStorageMode == KeyStoragePersistent && c.MasterKeyPath == "" && c.MasterKey == "" {
		return errors.New("invalid configuration: persistent keys need NP_MASTER_KEY_PATH or NP_MASTER_KEY")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// "300s", "30m", ...
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

// splitList parses a comma separated env value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
