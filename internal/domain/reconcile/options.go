package reconcile

// Option configures an Engine.
type Option func(*Engine)

// WithHighScoreBand sets the band index (floor(wpm/10)) from which newly
// granted speed roles notify moderators. Non-positive values are ignored.
func WithHighScoreBand(band int) Option {
	return func(e *Engine) {
		if band > 0 {
			e.highScoreBand = band
		}
	}
}
