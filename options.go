package recgo

import (
	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/dataset"
	"github.com/hupe1980/recgo/pipeline"
)

const (
	// DefaultNumRecommendations is the per-user output cap.
	DefaultNumRecommendations = 10
	// DefaultMaxPrefsPerUser is the pruning cap K on preferences considered
	// per user.
	DefaultMaxPrefsPerUser = 10
)

type options struct {
	numRecommendations int
	maxPrefsPerUser    int
	booleanData        bool
	usersFile          string
	compression        dataset.Compression
	codec              codec.Codec
	logger             *Logger
	maxConcurrency     int
	ioLimitBytesPerSec int64
	startPhase         pipeline.Phase
	endPhase           pipeline.Phase
	forceRerun         bool
}

func defaultOptions() options {
	return options{
		numRecommendations: DefaultNumRecommendations,
		maxPrefsPerUser:    DefaultMaxPrefsPerUser,
		compression:        dataset.CompressionZstd,
		codec:              codec.Default,
		startPhase:         pipeline.PhaseItemIndex,
		endPhase:           pipeline.PhaseRecommendations,
	}
}

// Option configures a Pipeline.
type Option func(*options)

// WithNumRecommendations sets the maximum number of recommended items
// emitted per user.
func WithNumRecommendations(n int) Option {
	return func(o *options) {
		o.numRecommendations = n
	}
}

// WithMaxPrefsPerUser sets the cap K on preferences considered per user
// during the partial-product expansion. Entries beyond the K largest by
// absolute value are marked excluded rather than dropped.
func WithMaxPrefsPerUser(k int) Option {
	return func(o *options) {
		o.maxPrefsPerUser = k
	}
}

// WithBooleanData declares the input as boolean preference data: records may
// omit the value field and every preference gets the implicit value 1.0.
func WithBooleanData(boolean bool) Option {
	return func(o *options) {
		o.booleanData = boolean
	}
}

// WithUsersFile restricts recommendation computation to the user IDs listed
// in the named blob (one decimal ID per line). Unlisted users are skipped
// entirely at the vector-splitting stage.
func WithUsersFile(name string) Option {
	return func(o *options) {
		o.usersFile = name
	}
}

// WithCompression sets the compression applied to intermediate datasets.
func WithCompression(c dataset.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCodec sets the codec used for the manifest and the final JSON output.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxConcurrency bounds the number of groups processed concurrently
// within a phase. Defaults to GOMAXPROCS.
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.maxConcurrency = n
	}
}

// WithIOLimit caps dataset write throughput in bytes per second. Zero means
// unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimitBytesPerSec = bytesPerSec
	}
}

// WithStartPhase starts the run at the given phase. Outputs of every earlier
// phase must be recorded complete in the manifest under a matching
// configuration fingerprint.
func WithStartPhase(p pipeline.Phase) Option {
	return func(o *options) {
		o.startPhase = p
	}
}

// WithEndPhase stops the run after the given phase completes.
func WithEndPhase(p pipeline.Phase) Option {
	return func(o *options) {
		o.endPhase = p
	}
}

// WithForceRerun discards recorded phase completions and recomputes every
// phase in range, even when the manifest fingerprint matches.
func WithForceRerun(force bool) Option {
	return func(o *options) {
		o.forceRerun = force
	}
}
