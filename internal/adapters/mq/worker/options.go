package worker

import (
	"time"

	"github.com/okian/autorole/pkg/logger"
)

// Option applies a configuration option to the Processor.
type Option func(*Processor)

// WithAcquisitionTimeout bounds the profile acquisition stage. Zero or less
// leaves it unbounded.
func WithAcquisitionTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.acquisitionTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the processor.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}
