// conf/validate.go settings validation
package conf

import (
	"fmt"
	"strings"
)

// ValidateSettings checks the loaded settings for inconsistencies that would
// prevent the service from operating.
func ValidateSettings(settings *Settings) error {
	var errs []string

	if err := validateClassifierSettings(&settings.Classifier); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateOutbreakSettings(&settings.Outbreak); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateOutputSettings(&settings.Output); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateClassifierSettings(c *ClassifierSettings) error {
	if c.Workers < 0 {
		return fmt.Errorf("classifier.workers must not be negative, got %d", c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("classifier.timeout must be positive, got %d", c.Timeout)
	}
	return nil
}

func validateOutbreakSettings(o *OutbreakSettings) error {
	if o.WindowDays <= 0 {
		return fmt.Errorf("outbreak.windowdays must be positive, got %d", o.WindowDays)
	}
	if o.MinThreshold <= 0 {
		return fmt.Errorf("outbreak.minthreshold must be positive, got %d", o.MinThreshold)
	}
	if o.HighThreshold < o.MinThreshold {
		return fmt.Errorf("outbreak.highthreshold (%d) must not be below outbreak.minthreshold (%d)",
			o.HighThreshold, o.MinThreshold)
	}
	if o.Limit <= 0 {
		return fmt.Errorf("outbreak.limit must be positive, got %d", o.Limit)
	}
	return nil
}

func validateOutputSettings(o *OutputSettings) error {
	if !o.SQLite.Enabled && !o.MySQL.Enabled {
		return fmt.Errorf("at least one output database must be enabled")
	}
	if o.SQLite.Enabled && o.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path must be set when SQLite is enabled")
	}
	if o.MySQL.Enabled {
		if o.MySQL.Host == "" || o.MySQL.Database == "" {
			return fmt.Errorf("output.mysql.host and output.mysql.database must be set when MySQL is enabled")
		}
	}
	return nil
}

func validateWebServerSettings(w *WebServerSettings) error {
	if w.Enabled && w.Port == "" {
		return fmt.Errorf("webserver.port must be set when the web server is enabled")
	}
	return nil
}
