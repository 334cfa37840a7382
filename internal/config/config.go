// Package config loads the daemon configuration from an INI file.
//
//	[NTP]
//	NTP_Server = sg.pool.ntp.org
//	NTP_UDPPort = 123
//	NTP_PoolInterval_Min = 1
//	EnableTimeSyncService = true
//
// Missing, unparsable or out-of-range keys fall back to their defaults one
// by one.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

const (
	DefaultPath = "/etc/timesyncd/Configuration.ini"
	Section     = "NTP"

	DefaultServer        = "sg.pool.ntp.org"
	DefaultUDPPort       = 123
	DefaultListenHost    = "0.0.0.0"
	DefaultPoolInterval  = time.Minute
	DefaultQueryTimeout  = 5 * time.Second
	DefaultResponseDelay = time.Second

	// ListenHostEnv overrides NTP_ListenHost when set.
	ListenHostEnv = "NTP_HOST"
)

type Config struct {
	// Upstream time pool host, optionally with an explicit ":port".
	Server string
	// Address and port the SNTP responder binds to.
	ListenHost string
	UDPPort    int
	// Time between upstream synchronization cycles.
	PoolInterval time.Duration
	// Run the SNTP responder.
	EnableTimeSyncService bool
	// Turn off the platform time service before starting.
	DisableSystemTimeService bool
	QueryTimeout             time.Duration
	// Added to the receive and transmit timestamps of every response.
	ResponseDelay time.Duration
}

func Default() *Config {
	return &Config{
		Server:                   DefaultServer,
		ListenHost:               DefaultListenHost,
		UDPPort:                  DefaultUDPPort,
		PoolInterval:             DefaultPoolInterval,
		EnableTimeSyncService:    true,
		DisableSystemTimeService: true,
		QueryTimeout:             DefaultQueryTimeout,
		ResponseDelay:            DefaultResponseDelay,
	}
}

// Load reads and validates the INI file at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return fromFile(f)
}

// Parse reads and validates INI data.
func Parse(data []byte) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*Config, error) {
	sec := f.Section(Section)

	cfg := &Config{
		Server:                   sec.Key("NTP_Server").MustString(DefaultServer),
		ListenHost:               sec.Key("NTP_ListenHost").MustString(DefaultListenHost),
		UDPPort:                  sec.Key("NTP_UDPPort").MustInt(DefaultUDPPort),
		PoolInterval:             time.Duration(sec.Key("NTP_PoolInterval_Min").MustInt(1)) * time.Minute,
		EnableTimeSyncService:    sec.Key("EnableTimeSyncService").MustBool(true),
		DisableSystemTimeService: sec.Key("DisableSystemTimeService").MustBool(true),
		QueryTimeout:             time.Duration(sec.Key("NTP_QueryTimeout_Sec").MustInt(5)) * time.Second,
		ResponseDelay:            time.Duration(sec.Key("NTP_ResponseDelay_Ms").MustInt(1000)) * time.Millisecond,
	}
	cfg.clamp()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// clamp resets each out-of-range value to its default.
func (c *Config) clamp() {
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if _, _, err := c.Upstream(); err != nil {
		c.Server = DefaultServer
	}
	if c.ListenHost == "" {
		c.ListenHost = DefaultListenHost
	}
	if c.UDPPort < 1 || c.UDPPort > 65535 {
		c.UDPPort = DefaultUDPPort
	}
	if c.PoolInterval < time.Minute {
		c.PoolInterval = DefaultPoolInterval
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.ResponseDelay < 0 {
		c.ResponseDelay = DefaultResponseDelay
	}
}

// ApplyEnv applies environment overrides using lookup, usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if host, ok := lookup(ListenHostEnv); ok && host != "" {
		c.ListenHost = host
	}
}

func (c *Config) Validate() error {
	if c.Server == "" {
		return errors.New("NTP_Server is required")
	}
	if _, _, err := c.Upstream(); err != nil {
		return err
	}
	if c.UDPPort < 1 || c.UDPPort > 65535 {
		return fmt.Errorf("NTP_UDPPort %d out of range", c.UDPPort)
	}
	if c.PoolInterval < time.Minute {
		return fmt.Errorf("NTP_PoolInterval_Min must be at least 1, got %s", c.PoolInterval)
	}
	if c.QueryTimeout <= 0 {
		return errors.New("NTP_QueryTimeout_Sec must be positive")
	}
	if c.ResponseDelay < 0 {
		return errors.New("NTP_ResponseDelay_Ms must not be negative")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.UDPPort))
}

// Upstream splits Server into host and port. The port defaults to 123.
func (c *Config) Upstream() (string, int, error) {
	host, portStr, err := net.SplitHostPort(c.Server)
	if err != nil {
		// No port, or a bare IPv6 literal.
		return c.Server, DefaultUDPPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in NTP_Server %q", c.Server)
	}
	if host == "" {
		return "", 0, fmt.Errorf("missing host in NTP_Server %q", c.Server)
	}
	return host, port, nil
}
