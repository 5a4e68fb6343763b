package etcdstore

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrInvalidConfig is wrapped by all validation errors of this package.
var ErrInvalidConfig = errors.New("invalid etcd configuration")

// Environment variables consulted by WithEnvCredentials
const (
	EnvUser     = "ETCD_USER"
	EnvPassword = "ETCD_PASSWORD"
)

// Config holds the connection settings shared by all endpoints of a pool.
type Config struct {
	// DialTimeout bounds connecting to an endpoint (including the status probe)
	DialTimeout time.Duration
	// RequestTimeout bounds a single request, 0 = only the caller's context applies
	RequestTimeout time.Duration
	// Username for etcd authentication (optional, requires Password)
	Username string
	// Password for etcd authentication (optional, requires Username)
	Password string
}

// DefaultConfig returns a configuration without authentication.
func DefaultConfig() Config {
	return Config{
		DialTimeout:    5 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// WithEnvCredentials fills Username and Password from ETCD_USER and ETCD_PASSWORD
// if neither is set yet.
func (c Config) WithEnvCredentials() Config {
	if c.Username == "" && c.Password == "" {
		c.Username = os.Getenv(EnvUser)
		c.Password = os.Getenv(EnvPassword)
	}
	return c
}

// Validate checks the configuration. Username and password must be given together.
func (c Config) Validate() error {
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: dial timeout must be positive, got %s", ErrInvalidConfig, c.DialTimeout)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: request timeout must not be negative, got %s", ErrInvalidConfig, c.RequestTimeout)
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("%w: username and password must be set together", ErrInvalidConfig)
	}
	return nil
}
