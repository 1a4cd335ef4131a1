package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Settings are the business knobs of the service.  They are read once at
// startup and passed explicitly into the services that need them.
type Settings struct {
	GSTRate           decimal.Decimal // percentage included in every price
	VoucherExpiryDays int             // lifetime of a voucher from purchase
	DefaultWindowName string          // name given to the default pricing window
	DefaultSoldVia    string          // retailer group that records online sales; never invoiced
	Organisation      string          // printed on invoices and emails
	NoReplyEmail      string          // sender of every notification
	SiteURL           string          // base URL used in email links
	ExpiryNoticeDays  int             // default look-ahead of the pass expiry notices
}

// settingsFile mirrors Settings for YAML decoding.  Every field is optional;
// absent fields keep the value from the environment.
type settingsFile struct {
	GSTRate           *string `yaml:"gst_rate"`
	VoucherExpiryDays *int    `yaml:"voucher_expiry_days"`
	DefaultWindowName *string `yaml:"default_window_name"`
	DefaultSoldVia    *string `yaml:"default_sold_via"`
	Organisation      *string `yaml:"organisation"`
	NoReplyEmail      *string `yaml:"no_reply_email"`
	SiteURL           *string `yaml:"site_url"`
	ExpiryNoticeDays  *int    `yaml:"expiry_notice_days"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		GSTRate:           decimal.NewFromInt(10),
		VoucherExpiryDays: 730,
		DefaultWindowName: "Default",
		DefaultSoldVia:    "Online",
		Organisation:      "Parks and Wildlife Service",
		NoReplyEmail:      "no-reply@parkpasses.local",
		SiteURL:           "http://localhost:8080",
		ExpiryNoticeDays:  7,
	}
}

// LoadSettings builds Settings from the defaults, the PARKPASSES_* variables
// and finally the YAML file named by PARKPASSES_SETTINGS_FILE.  An unreadable
// settings file is fatal; a malformed GST rate in the environment is too.
func LoadSettings() Settings {
	s := DefaultSettings()
	if v := os.Getenv("PARKPASSES_GST_RATE"); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			log.Fatalf("invalid decimal for PARKPASSES_GST_RATE: %q", v)
		}
		s.GSTRate = rate
	}
	s.VoucherExpiryDays = envInt("PARKPASSES_VOUCHER_EXPIRY_DAYS", s.VoucherExpiryDays)
	s.DefaultWindowName = envStr("PARKPASSES_DEFAULT_WINDOW_NAME", s.DefaultWindowName)
	s.DefaultSoldVia = envStr("PARKPASSES_DEFAULT_SOLD_VIA", s.DefaultSoldVia)
	s.Organisation = envStr("PARKPASSES_ORGANISATION", s.Organisation)
	s.NoReplyEmail = envStr("PARKPASSES_NO_REPLY_EMAIL", s.NoReplyEmail)
	s.SiteURL = envStr("PARKPASSES_SITE_URL", s.SiteURL)
	s.ExpiryNoticeDays = envInt("PARKPASSES_EXPIRY_NOTICE_DAYS", s.ExpiryNoticeDays)

	if path := os.Getenv("PARKPASSES_SETTINGS_FILE"); path != "" {
		merged, err := LoadSettingsFile(path, s)
		if err != nil {
			log.Fatalf("settings: %v", err)
		}
		s = merged
	}
	return s
}

// LoadSettingsFile overlays the YAML file at path onto base.
func LoadSettingsFile(path string, base Settings) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read %s: %w", path, err)
	}
	var f settingsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return base, fmt.Errorf("parse %s: %w", path, err)
	}
	s := base
	if f.GSTRate != nil {
		rate, err := decimal.NewFromString(*f.GSTRate)
		if err != nil {
			return base, fmt.Errorf("gst_rate: %w", err)
		}
		s.GSTRate = rate
	}
	if f.VoucherExpiryDays != nil {
		s.VoucherExpiryDays = *f.VoucherExpiryDays
	}
	if f.DefaultWindowName != nil {
		s.DefaultWindowName = *f.DefaultWindowName
	}
	if f.DefaultSoldVia != nil {
		s.DefaultSoldVia = *f.DefaultSoldVia
	}
	if f.Organisation != nil {
		s.Organisation = *f.Organisation
	}
	if f.NoReplyEmail != nil {
		s.NoReplyEmail = *f.NoReplyEmail
	}
	if f.SiteURL != nil {
		s.SiteURL = *f.SiteURL
	}
	if f.ExpiryNoticeDays != nil {
		s.ExpiryNoticeDays = *f.ExpiryNoticeDays
	}
	if s.VoucherExpiryDays <= 0 {
		return base, fmt.Errorf("voucher_expiry_days must be positive")
	}
	return s, nil
}
