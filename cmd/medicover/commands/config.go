package commands

import (
	"errors"
	"fmt"
	"medicover-assist/lib/configutil"
	"medicover-assist/lib/notify"
	"medicover-assist/lib/scrapers/medicover"
	"medicover-assist/lib/slotwindow"
	"medicover-assist/lib/telemetry"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`

	// zero means "not chosen yet"
	Region         int `json:"region" validate:"gte=-2"`
	Specialization int `json:"specialization" validate:"gte=-2"`
	Clinic         int `json:"clinic" validate:"gte=-1"`
	Doctor         int `json:"doctor" validate:"gte=-1"`

	// Days is the length of the slot window starting today.
	Days int `json:"days" validate:"gte=0,lte=60"`

	IftttKey string            `json:"ifttt_key"`
	Desktop  bool              `json:"desktop"`
	Smtp     notify.SmtpConfig `json:"smtp"`

	BaseUrl          string           `json:"base_url" validate:"omitempty,url"`
	BypassCloudflare bool             `json:"bypass_cloudflare"`
	Telemetry        telemetry.Config `json:"telemetry"`
}

func (c Config) Filter() medicover.Filter {
	return medicover.Filter{
		Region:         medicover.Some(c.Region),
		Specialization: medicover.Some(c.Specialization),
		Clinic:         medicover.Some(c.Clinic),
		Doctor:         medicover.Some(c.Doctor),
	}
}

func (c Config) credentials() (string, string, error) {
	if c.Username == "" {
		return "", "", errors.New("MEDICOVER_USERNAME is not set")
	}
	if c.Password == "" {
		return "", "", errors.New("MEDICOVER_PASSWORD is not set")
	}
	return c.Username, c.Password, nil
}

// loadConfig reads the config file (and its .local override) and lets the
// environment override every value in it.
func loadConfig(path string, overrides ...func(*Config)) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, err
	}
	err = applyEnv(&cfg)
	if err != nil {
		return Config{}, err
	}
	for _, override := range overrides {
		override(&cfg)
	}
	err = validator.New().Struct(cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Days <= 0 {
		cfg.Days = slotwindow.DefaultDays
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Username = configutil.EnvString("MEDICOVER_USERNAME", cfg.Username)
	cfg.Password = configutil.EnvString("MEDICOVER_PASSWORD", cfg.Password)
	cfg.IftttKey = configutil.EnvString("IFTTT_KEY", cfg.IftttKey)

	ints := []struct {
		key string
		out *int
	}{
		{"MEDICOVER_REGION", &cfg.Region},
		{"MEDICOVER_SPECIALIZATION", &cfg.Specialization},
		{"MEDICOVER_CLINIC", &cfg.Clinic},
		{"MEDICOVER_DOCTOR", &cfg.Doctor},
		{"MEDICOVER_DAYS", &cfg.Days},
		{"SMTP_PORT", &cfg.Smtp.Port},
	}
	var errs []error
	for _, entry := range ints {
		value, err := configutil.EnvInt(entry.key, *entry.out)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*entry.out = value
	}

	cfg.Smtp.Server = configutil.EnvString("SMTP_SERVER", cfg.Smtp.Server)
	cfg.Smtp.EmailAddress = configutil.EnvString("SMTP_EMAIL_ADDRESS", cfg.Smtp.EmailAddress)
	cfg.Smtp.Password = configutil.EnvString("SMTP_PASSWORD", cfg.Smtp.Password)
	to := configutil.EnvString("SMTP_TO", "")
	if to != "" {
		cfg.Smtp.To = nil
		for _, addr := range strings.Split(to, ",") {
			addr = strings.TrimSpace(addr)
			if addr != "" {
				cfg.Smtp.To = append(cfg.Smtp.To, addr)
			}
		}
	}
	if cfg.Smtp.Server != "" && cfg.Smtp.Port == 0 {
		cfg.Smtp.Port = 587
	}

	if len(errs) > 0 {
		return fmt.Errorf("read environment: %w", errors.Join(errs...))
	}
	return nil
}
