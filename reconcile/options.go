package reconcile

import (
	"time"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Options tunes a reconciliation run.
type Options struct {
	// Concurrency is the number of pathways reconciled at once.
	Concurrency int

	// MaxAttempts bounds the attempts of each read and of each write.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// PathwayTimeout bounds the total time spent on one pathway. Zero means no bound.
	PathwayTimeout time.Duration

	// InflightWriteTimeout bounds a submitted write once the run is cancelled.
	InflightWriteTimeout time.Duration

	// AbandonInflightWrites lets cancellation interrupt submitted writes instead of
	// waiting for their receipts.
	AbandonInflightWrites bool

	// DryRun reads and compares but never writes.
	DryRun bool
}

func DefaultOptions() Options {
	return Options{
		Concurrency:          4,
		MaxAttempts:          5,
		InitialBackoff:       500 * time.Millisecond,
		MaxBackoff:           10 * time.Second,
		PathwayTimeout:       5 * time.Minute,
		InflightWriteTimeout: 3 * time.Minute,
	}
}

// OptionsFromSettings converts the config file section. Unset values take the defaults.
func OptionsFromSettings(s types.ReconcileSettings) Options {
	o := DefaultOptions()
	if s.Concurrency > 0 {
		o.Concurrency = s.Concurrency
	}
	if s.MaxAttempts > 0 {
		o.MaxAttempts = s.MaxAttempts
	}
	if s.InitialBackoffMs > 0 {
		o.InitialBackoff = time.Duration(s.InitialBackoffMs) * time.Millisecond
	}
	if s.MaxBackoffMs > 0 {
		o.MaxBackoff = time.Duration(s.MaxBackoffMs) * time.Millisecond
	}
	if s.PathwayTimeout > 0 {
		o.PathwayTimeout = time.Duration(s.PathwayTimeout) * time.Second
	}
	if s.InflightWriteTimeout > 0 {
		o.InflightWriteTimeout = time.Duration(s.InflightWriteTimeout) * time.Second
	}
	o.AbandonInflightWrites = s.AbandonInflightWrites
	return o
}

func (o Options) normalized() Options {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = DefaultOptions().InitialBackoff
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = o.InitialBackoff
	}
	return o
}
