package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID        = "meshview"
	DefaultURL               = "ws://localhost:9223"
	DefaultReconnectInterval = 1 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultPingTimeout       = 90 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultConnBufferSize    = 1024
	DefaultClearColor        = "#cccccc"
	DefaultMeshColor         = "#ff0000"
	DefaultSpecularColor     = "#1a1a1a"
	DefaultContrastThreshold = 2.5
	DefaultMaxColorAttempts  = 1000
	DefaultUnknownKind       = "mesh"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultBatchSize         = 100
	DefaultFlushInterval     = 1 * time.Second
	DefaultBufferSize        = 1000
	DefaultMaxBufferSize     = 100000
	DefaultHealthPort        = 9224
)

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Connection defaults
	if c.Connection.URL == "" {
		c.Connection.URL = DefaultURL
	}
	if c.Connection.ReconnectInterval == 0 {
		c.Connection.ReconnectInterval = DefaultReconnectInterval
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultConnBufferSize
	}

	// Scene defaults
	if c.Scene.ClearColor == "" {
		c.Scene.ClearColor = DefaultClearColor
	}
	if c.Scene.MeshColor == "" {
		c.Scene.MeshColor = DefaultMeshColor
	}
	if c.Scene.SpecularColor == "" {
		c.Scene.SpecularColor = DefaultSpecularColor
	}
	if c.Scene.ContrastThreshold == 0 {
		c.Scene.ContrastThreshold = DefaultContrastThreshold
	}
	if c.Scene.MaxColorAttempts == 0 {
		c.Scene.MaxColorAttempts = DefaultMaxColorAttempts
	}
	if c.Scene.UnknownKind == "" {
		c.Scene.UnknownKind = DefaultUnknownKind
	}

	// Journal defaults
	applyDBDefaults(&c.Journal.Database)
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}
	if c.Journal.MaxBufferSize == 0 {
		c.Journal.MaxBufferSize = DefaultMaxBufferSize
	}

	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
