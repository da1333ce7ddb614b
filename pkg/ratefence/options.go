package ratefence

import "fmt"

// Option is a functional option for configuring a Limiter.
type Option func(*limiter) error

// WithConfig sets the configuration for the limiter.
func WithConfig(config *Config) Option {
	return func(l *limiter) error {
		if config == nil {
			return fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
		}
		if err := config.Validate(); err != nil {
			return err
		}
		l.config = config
		return nil
	}
}

// WithConfigFile loads configuration from a YAML file.
func WithConfigFile(path string) Option {
	return func(l *limiter) error {
		config, err := LoadConfigFromFile(path)
		if err != nil {
			return err
		}
		l.config = config
		return nil
	}
}

// WithPolicy sets the rate limit, keeping the rest of the
// configuration at its defaults.
func WithPolicy(policy Policy) Option {
	return func(l *limiter) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		l.config.Limit = policy
		return nil
	}
}

// WithExtractor sets a custom client identity extractor.
func WithExtractor(extractor Extractor) Option {
	return func(l *limiter) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor cannot be nil", ErrInvalidConfig)
		}
		l.extractor = extractor
		return nil
	}
}

// WithClock sets the time source used for window accounting. Tests
// inject a manual clock here to advance time without sleeping.
func WithClock(clock Clock) Option {
	return func(l *limiter) error {
		if clock == nil {
			return fmt.Errorf("%w: clock cannot be nil", ErrInvalidConfig)
		}
		l.clock = clock
		return nil
	}
}

// WithTrackedClients restricts limiting to the given clients. Sentinel
// ids are ignored.
func WithTrackedClients(ids ...ClientID) Option {
	return func(l *limiter) error {
		for _, id := range ids {
			if id == 0 {
				continue
			}
			l.config.TrackedClients = append(l.config.TrackedClients, id.String())
		}
		return nil
	}
}

// WithStats sets a per-decision stats recorder.
func WithStats(stats StatsRecorder) Option {
	return func(l *limiter) error {
		if stats == nil {
			return fmt.Errorf("%w: stats recorder cannot be nil", ErrInvalidConfig)
		}
		l.stats = stats
		return nil
	}
}

// WithMetrics sets an aggregate metrics recorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(l *limiter) error {
		if metrics == nil {
			return fmt.Errorf("%w: metrics recorder cannot be nil", ErrInvalidConfig)
		}
		l.metrics = metrics
		return nil
	}
}
