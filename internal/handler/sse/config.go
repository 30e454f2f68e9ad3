package sse

import "time"

// Config holds configuration for SSE connections
type Config struct {
	// KeepAliveInterval is how often to send keep-alive pings to prevent proxy timeouts
	KeepAliveInterval time.Duration

	// PollInterval is how often the change counter is checked
	PollInterval time.Duration
}

// DefaultConfig returns the default SSE configuration
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 15 * time.Second,
		PollInterval:      time.Second,
	}
}
