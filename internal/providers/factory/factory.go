package factory

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/config"
	emailprovider "github.com/vipspot/contact-relay/internal/providers/email"
)

// Email constructs the configured email provider. Supported drivers are
// mock, smtp and mailgun.
func Email(cfg config.ProviderConfig, logger zerolog.Logger) (emailprovider.Provider, error) {
	driver := normalize(cfg.Driver, "mock")
	switch driver {
	case "smtp":
		provider, err := emailprovider.NewSMTPProvider(cfg.SMTP, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: smtp provider init: %w", err)
		}
		logger.Info().Str("driver", "smtp").Msg("email provider initialised")
		return provider, nil
	case "mailgun":
		provider, err := emailprovider.NewMailgunProvider(cfg.Mailgun, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: mailgun provider init: %w", err)
		}
		logger.Info().Str("driver", "mailgun").Msg("email provider initialised")
		return provider, nil
	case "mock":
		logger.Info().Str("driver", "mock").Msg("email provider initialised")
		return emailprovider.NewMockProvider(logger), nil
	default:
		return nil, fmt.Errorf("factory: unsupported email driver %q", cfg.Driver)
	}
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
