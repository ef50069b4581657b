package model

import (
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAPIPort    = 8728
	DefaultAPITLSPort = 8729
)

// Device is one monitored RouterOS router with its connection parameters.
type Device struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Host          string     `json:"ipAddress"`
	Username      string     `json:"username"`
	Password      string     `json:"password,omitempty"`
	Port          int        `json:"port"`
	UseTLS        bool       `json:"useTls"`
	Model         *string    `json:"model,omitempty"`
	Version       *string    `json:"version,omitempty"`
	LastConnected *time.Time `json:"lastConnected,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Address returns host:port used to dial the RouterOS API.
func (d Device) Address() string {
	host := strings.TrimSpace(d.Host)
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	port := d.Port
	if port <= 0 {
		port = DefaultAPIPort
		if d.UseTLS {
			port = DefaultAPITLSPort
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ConnectionKey changes whenever any parameter that affects the session changes.
func (d Device) ConnectionKey() string {
	return strings.Join([]string{
		d.Address(),
		d.Username,
		d.Password,
		strconv.FormatBool(d.UseTLS),
	}, "\x00")
}

// DeviceInput is the payload for registering a device.
type DeviceInput struct {
	Name     string  `json:"name" yaml:"name"`
	Host     string  `json:"ipAddress" yaml:"host"`
	Username string  `json:"username" yaml:"username"`
	Password string  `json:"password" yaml:"password"`
	Port     int     `json:"port" yaml:"port"`
	UseTLS   bool    `json:"useTls" yaml:"use_tls"`
	Model    *string `json:"model,omitempty" yaml:"model"`
	Version  *string `json:"version,omitempty" yaml:"version"`
}

// DevicePatch carries a partial device update; nil fields are left untouched.
type DevicePatch struct {
	Name     *string `json:"name,omitempty"`
	Host     *string `json:"ipAddress,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Port     *int    `json:"port,omitempty"`
	UseTLS   *bool   `json:"useTls,omitempty"`
	Model    *string `json:"model,omitempty"`
	Version  *string `json:"version,omitempty"`
}

// Apply merges non-nil patch fields into d. ID and timestamps are preserved.
func (p DevicePatch) Apply(d Device) Device {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Host != nil {
		d.Host = *p.Host
	}
	if p.Username != nil {
		d.Username = *p.Username
	}
	if p.Password != nil {
		d.Password = *p.Password
	}
	if p.Port != nil {
		d.Port = *p.Port
	}
	if p.UseTLS != nil {
		d.UseTLS = *p.UseTLS
	}
	if p.Model != nil {
		d.Model = p.Model
	}
	if p.Version != nil {
		d.Version = p.Version
	}
	return d
}
