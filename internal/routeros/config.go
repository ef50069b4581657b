package routeros

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

const defaultDialTimeout = 10 * time.Second

// Config defines one RouterOS API connection profile.
type Config struct {
	Address   string
	Username  string
	Password  string
	UseTLS    bool
	VerifyTLS bool
	Timeout   time.Duration
}

// ConfigFromDevice builds a connection profile from the registry record.
func ConfigFromDevice(d model.Device, timeout time.Duration) Config {
	address := strings.TrimSpace(d.Host)
	if d.Port > 0 {
		if _, _, err := net.SplitHostPort(address); err != nil {
			address = net.JoinHostPort(strings.Trim(address, "[]"), strconv.Itoa(d.Port))
		}
	}
	return Config{
		Address:  address,
		Username: strings.TrimSpace(d.Username),
		Password: d.Password,
		UseTLS:   d.UseTLS,
		Timeout:  timeout,
	}
}

func normalizeConfig(cfg Config) (Config, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	cfg.Username = strings.TrimSpace(cfg.Username)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDialTimeout
	}
	if cfg.Address == "" {
		return Config{}, &ValidationError{Field: "address", Reason: "is required"}
	}
	if cfg.Username == "" {
		return Config{}, &ValidationError{Field: "username", Reason: "is required"}
	}

	address, err := normalizeAddress(cfg.Address, cfg.UseTLS)
	if err != nil {
		return Config{}, err
	}
	cfg.Address = address
	return cfg, nil
}

func normalizeAddress(raw string, useTLS bool) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", &ValidationError{Field: "address", Reason: "is required"}
	}

	if strings.Contains(value, "/") && !strings.Contains(value, "://") {
		value = strings.Split(value, "/")[0]
	}
	if !strings.Contains(value, "://") {
		value = "routeros://" + value
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return "", &ValidationError{Field: "address", Reason: fmt.Sprintf("invalid value: %v", err)}
	}

	host := strings.TrimSpace(parsed.Host)
	if host == "" {
		host = strings.TrimSpace(parsed.Path)
	}
	if host == "" {
		return "", &ValidationError{Field: "address", Reason: "host is empty"}
	}
	return withDefaultPort(host, useTLS)
}

func withDefaultPort(host string, useTLS bool) (string, error) {
	port := strconv.Itoa(model.DefaultAPIPort)
	if useTLS {
		port = strconv.Itoa(model.DefaultAPITLSPort)
	}

	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}

	host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	if strings.TrimSpace(host) == "" {
		return "", &ValidationError{Field: "address", Reason: "host is empty"}
	}
	return net.JoinHostPort(host, port), nil
}

func configKey(cfg Config) string {
	return strings.Join(
		[]string{
			cfg.Address,
			cfg.Username,
			cfg.Password,
			boolToWord(cfg.UseTLS),
			boolToWord(cfg.VerifyTLS),
		},
		"\x00",
	)
}

func boolToWord(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
