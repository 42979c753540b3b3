package dedupe

// Option applies a configuration option to the Memory deduper.
type Option func(*Memory)

// WithMaxSize sets the number of ids to keep. Zero or less keeps every id.
func WithMaxSize(maxSize int) Option {
	return func(d *Memory) {
		d.maxSize = maxSize
	}
}
