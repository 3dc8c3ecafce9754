package bridge

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/apiprobe/internal/config"
)

const (
	// DefaultMaxBodyBytes limits request payloads to 1 MB.
	DefaultMaxBodyBytes int64 = 1 << 20
	// DefaultReadTimeout guards hung clients.
	DefaultReadTimeout = 15 * time.Second
	// DefaultWriteTimeout bounds handler writes.
	DefaultWriteTimeout = 15 * time.Second
	// DefaultIdleTimeout bounds keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second
	// DefaultSendTimeout bounds a single delivery from the client.
	DefaultSendTimeout = 10 * time.Second
)

// Settings captures runtime configuration for the bridge server and client.
type Settings struct {
	Enabled      bool
	Host         string
	Port         int
	Target       string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	SendTimeout  time.Duration
}

// SettingsFromConfig builds Settings from the project's .apiprobe config.
// Environment overrides are already folded into cfg by config.NewConfig.
func SettingsFromConfig(cfg *config.Config) Settings {
	settings := Settings{
		Enabled:      true,
		Host:         config.DefaultBridgeHost,
		Port:         config.DefaultBridgePort,
		MaxBodyBytes: DefaultMaxBodyBytes,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
		SendTimeout:  DefaultSendTimeout,
	}
	if cfg != nil {
		settings.Enabled = cfg.BridgeEnabled()
		settings.Host = cfg.Project.Bridge.Host
		settings.Port = cfg.Project.Bridge.Port
		settings.Target = cfg.Project.Bridge.Target
	}
	settings.normalize()
	return settings
}

func (s *Settings) normalize() {
	if s == nil {
		return
	}
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		s.Host = config.DefaultBridgeHost
	}
	if s.Port < 0 || s.Port > 65535 {
		s.Port = config.DefaultBridgePort
	}
	s.Target = strings.TrimRight(strings.TrimSpace(s.Target), "/")
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.SendTimeout <= 0 {
		s.SendTimeout = DefaultSendTimeout
	}
}

// Address returns the TCP bind address in host:port form.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the local server.
func (s Settings) URL() string {
	return "http://" + s.Address()
}

// TargetURL returns the base URL commands are delivered to. It defaults to
// the local server address.
func (s Settings) TargetURL() string {
	if s.Target != "" {
		return s.Target
	}
	return s.URL()
}
