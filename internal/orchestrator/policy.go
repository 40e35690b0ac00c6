package orchestrator

import "time"

const (
	DefaultMaxProbeAttempts = 5
	DefaultProbeInterval    = 10 * time.Second
	DefaultProbeTimeout     = 5 * time.Second
)

// Policy carries the retry and timing configuration for one deployment
// request. The zero value is usable; Normalize fills in defaults.
type Policy struct {
	MaxProbeAttempts   int           `json:"maxProbeAttempts,omitempty" yaml:"maxProbeAttempts" toml:"maxProbeAttempts"`
	ProbeInterval      time.Duration `json:"probeInterval,omitempty" yaml:"probeInterval" toml:"probeInterval"`
	ProbeTimeout       time.Duration `json:"probeTimeout,omitempty" yaml:"probeTimeout" toml:"probeTimeout"`
	StartupGracePeriod time.Duration `json:"startupGracePeriod,omitempty" yaml:"startupGracePeriod" toml:"startupGracePeriod"`
}

func (p Policy) Normalize() Policy {
	if p.MaxProbeAttempts <= 0 {
		p.MaxProbeAttempts = DefaultMaxProbeAttempts
	}
	if p.ProbeInterval <= 0 {
		p.ProbeInterval = DefaultProbeInterval
	}
	if p.ProbeTimeout <= 0 {
		p.ProbeTimeout = DefaultProbeTimeout
	}
	if p.StartupGracePeriod < 0 {
		p.StartupGracePeriod = 0
	}
	return p
}
