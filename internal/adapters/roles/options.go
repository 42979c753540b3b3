package roles

import "github.com/okian/autorole/pkg/logger"

// Option applies a configuration option to the Applier.
type Option func(*Applier)

// WithDryRun resolves and logs mutations without applying them.
func WithDryRun(dryRun bool) Option {
	return func(a *Applier) {
		a.dryRun = dryRun
	}
}

// WithLogger sets a custom logger for the applier.
func WithLogger(l logger.Logger) Option {
	return func(a *Applier) {
		if l != nil {
			a.logger = l
		}
	}
}
