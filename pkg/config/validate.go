package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// Validate checks the config for structural correctness.
func Validate(c *Config) []error {
	var errs []error

	if c.Version != 1 {
		errs = append(errs, fmt.Errorf("version must be 1, got %d", c.Version))
	}

	if !c.Client.Configured() && !c.Daemon.Configured() {
		errs = append(errs, fmt.Errorf("config must define a client or a daemon section"))
	}

	if c.Client.Configured() {
		errs = append(errs, ValidateClient(c.Client)...)
	}
	if c.Daemon.Configured() {
		errs = append(errs, ValidateDaemon(c.Daemon)...)
	}
	return errs
}

// ValidateClient checks the client section.
func ValidateClient(cc ClientConfig) []error {
	var errs []error

	if u, err := url.Parse(cc.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		errs = append(errs, fmt.Errorf("client: url must be a ws:// or wss:// URL, got %q", cc.URL))
	}

	if cc.Origin == "" {
		errs = append(errs, fmt.Errorf("client: origin is required"))
	} else if u, err := url.Parse(cc.Origin); err != nil || u.Scheme == "" || u.Host == "" || (u.Path != "" && u.Path != "/") {
		errs = append(errs, fmt.Errorf("client: origin must be scheme://host[:port], got %q", cc.Origin))
	} else if strings.HasSuffix(cc.Origin, "/") {
		errs = append(errs, fmt.Errorf("client: origin must not end with a slash"))
	}

	if err := checkPrefix(cc.ServicePrefix); err != nil {
		errs = append(errs, fmt.Errorf("client: %w", err))
	}

	if cc.Locale != "" {
		if _, err := language.Parse(cc.Locale); err != nil {
			errs = append(errs, fmt.Errorf("client: locale %q: %w", cc.Locale, err))
		}
	}

	if cc.PageSize < 0 {
		errs = append(errs, fmt.Errorf("client: page_size must not be negative"))
	}

	if cc.AutoRefresh != "" {
		if _, err := cron.ParseStandard(cc.AutoRefresh); err != nil {
			errs = append(errs, fmt.Errorf("client: auto_refresh %q: %w", cc.AutoRefresh, err))
		}
	}

	return errs
}

// ValidateDaemon checks the daemon section.
func ValidateDaemon(dc DaemonConfig) []error {
	var errs []error

	if _, port, err := net.SplitHostPort(dc.Listen); err != nil {
		errs = append(errs, fmt.Errorf("daemon: listen %q must be host:port: %w", dc.Listen, err))
	} else if port == "" {
		errs = append(errs, fmt.Errorf("daemon: listen %q has no port", dc.Listen))
	}
	if err := checkPrefix(dc.ServicePrefix); err != nil {
		errs = append(errs, fmt.Errorf("daemon: %w", err))
	}
	if !strings.HasPrefix(dc.AdminPath, "/") {
		errs = append(errs, fmt.Errorf("daemon: admin_path must start with /"))
	}

	m := dc.Module
	if !strings.HasPrefix(m.ServiceURI, "/") {
		errs = append(errs, fmt.Errorf("daemon: module.service_uri must start with /"))
	}
	if !strings.HasPrefix(m.AdminServiceURI, "/") || !strings.HasSuffix(m.AdminServiceURI, "/") {
		errs = append(errs, fmt.Errorf("daemon: module.admin_service_uri must start and end with /"))
	}

	if dc.Records == "" {
		errs = append(errs, fmt.Errorf("daemon: records is required"))
	}
	if _, err := dc.RetentionDuration(); err != nil {
		errs = append(errs, fmt.Errorf("daemon: %w", err))
	}
	if w, err := dc.WatchInterval(); err != nil {
		errs = append(errs, fmt.Errorf("daemon: %w", err))
	} else if w < 0 {
		errs = append(errs, fmt.Errorf("daemon: watch must not be negative"))
	}
	if dc.RateLimit < 0 || dc.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("daemon: rate_limit and rate_burst must not be negative"))
	}

	return errs
}

func checkPrefix(p string) error {
	if p == "" {
		return nil
	}
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("service_prefix must start with /, got %q", p)
	}
	if strings.HasSuffix(p, "/") {
		return fmt.Errorf("service_prefix must not end with /, got %q", p)
	}
	return nil
}
