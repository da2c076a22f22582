package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Connection.validate(); err != nil {
		return err
	}
	if err := c.Scene.validate(); err != nil {
		return err
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
		if c.Journal.MaxBufferSize < c.Journal.BufferSize {
			return fmt.Errorf("journal.max_buffer_size (%d) cannot be less than buffer_size (%d)", c.Journal.MaxBufferSize, c.Journal.BufferSize)
		}
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (c *ConnectionConfig) validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("connection.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("connection.url must use ws or wss, got %q", c.URL)
	}
	if c.ReconnectInterval <= 0 {
		return errors.New("connection.reconnect_interval must be > 0")
	}
	if c.BufferSize < 1 {
		return errors.New("connection.buffer_size must be >= 1")
	}
	return nil
}

func (s *SceneConfig) validate() error {
	if _, err := s.Colors(); err != nil {
		return err
	}
	if s.ContrastThreshold < 1 || s.ContrastThreshold > 21 {
		return fmt.Errorf("scene.contrast_threshold must be between 1 and 21, got %v", s.ContrastThreshold)
	}
	if s.MaxColorAttempts < 1 {
		return errors.New("scene.max_color_attempts must be >= 1")
	}
	if s.UnknownKind != "mesh" && s.UnknownKind != "reject" {
		return fmt.Errorf("scene.unknown_kind must be mesh or reject, got %q", s.UnknownKind)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
