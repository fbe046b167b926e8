package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the contact relay.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Contact  ContactConfig
	Guards   GuardConfig
	Provider ProviderConfig
	Events   EventsConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
}

// HTTPConfig controls the public HTTP surface.
type HTTPConfig struct {
	AllowedOrigins  []string
	BodyLimitBytes  int64
	ShutdownTimeout time.Duration
}

// ContactConfig holds the addressing and copy used when composing the two
// outbound emails.
type ContactConfig struct {
	To         string
	From       string
	ReplyTo    string
	Company    string
	BookingURL string
}

// GuardConfig groups the anti-abuse knobs: timing guard, rate limiter and
// idempotency retention. The client resend cooldown is independent of these
// and lives client-side only.
type GuardConfig struct {
	MinFormAge     time.Duration
	RateWindow     time.Duration
	RateMax        int
	IdempotencyTTL time.Duration
	SweepInterval  time.Duration
}

// SMTPConfig stores SMTP credentials for email delivery.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
}

// MailgunConfig stores Mailgun credentials for email delivery.
type MailgunConfig struct {
	Domain string
	APIKey string
}

// ProviderConfig selects and configures the outbound email backend.
type ProviderConfig struct {
	Driver  string // mock, smtp or mailgun
	SMTP    SMTPConfig
	Mailgun MailgunConfig
}

// EventsConfig configures the optional Kafka submission-event stream. An
// empty broker list disables publishing entirely.
type EventsConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether submission events should be published.
func (e EventsConfig) Enabled() bool {
	return len(e.Brokers) > 0 && e.Topic != ""
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.Port = ldr.getInt("APP_PORT", 8080, false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.HTTP.AllowedOrigins = ldr.getStringSlice("ALLOWED_ORIGINS",
		"https://vipspot.net,https://www.vipspot.net,http://localhost:8000", false)
	cfg.HTTP.BodyLimitBytes = int64(ldr.getInt("BODY_LIMIT_BYTES", 200_000, false))
	cfg.HTTP.ShutdownTimeout = ldr.getDuration("SHUTDOWN_TIMEOUT", 5*time.Second, false)

	cfg.Contact.To = ldr.getString("CONTACT_TO", "contact@vipspot.net", false)
	cfg.Contact.From = ldr.getString("CONTACT_FROM", "VIPSpot <noreply@vipspot.net>", false)
	cfg.Contact.ReplyTo = ldr.getString("CONTACT_REPLY_TO", "", false)
	cfg.Contact.Company = ldr.getString("COMPANY_NAME", "VIPSpot", false)
	cfg.Contact.BookingURL = ldr.getString("BOOKING_URL", "mailto:contact@vipspot.net", false)

	cfg.Guards.MinFormAge = ldr.getDuration("MIN_FORM_AGE", 3*time.Second, false)
	cfg.Guards.RateWindow = ldr.getDuration("RATE_WINDOW", 30*time.Second, false)
	cfg.Guards.RateMax = ldr.getInt("RATE_MAX", 1, false)
	cfg.Guards.IdempotencyTTL = ldr.getDuration("IDEMPOTENCY_TTL", 60*time.Second, false)
	cfg.Guards.SweepInterval = ldr.getDuration("SWEEP_INTERVAL", 30*time.Second, false)

	cfg.Provider.Driver = ldr.getString("MAIL_DRIVER", "mock", false)
	switch strings.ToLower(cfg.Provider.Driver) {
	case "smtp":
		cfg.Provider.SMTP.Host = ldr.getString("SMTP_HOST", "", true)
		cfg.Provider.SMTP.Port = ldr.getInt("SMTP_PORT", 587, false)
		cfg.Provider.SMTP.User = ldr.getString("SMTP_USER", "", false)
		cfg.Provider.SMTP.Pass = ldr.getString("SMTP_PASS", "", false)
	case "mailgun":
		cfg.Provider.Mailgun.Domain = ldr.getString("MAILGUN_DOMAIN", "", true)
		cfg.Provider.Mailgun.APIKey = ldr.getString("MAILGUN_API_KEY", "", true)
	}

	cfg.Events.Brokers = ldr.getStringSlice("KAFKA_BROKERS", "", false)
	cfg.Events.Topic = ldr.getString("KAFKA_SUBMISSIONS_TOPIC", "contact.submissions", false)

	if cfg.Guards.RateMax < 1 {
		ldr.addError("RATE_MAX must be at least 1")
	}
	if cfg.HTTP.BodyLimitBytes <= 0 {
		ldr.addError("BODY_LIMIT_BYTES must be positive")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) getDuration(key string, def time.Duration, required bool) time.Duration {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid duration", key))
		return def
	}
	return d
}

func (l *envLoader) getStringSlice(key, def string, required bool) []string {
	raw := l.getString(key, def, required)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
