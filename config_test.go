package symdex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveBatchSize_Clamping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		configured int
		want       int
	}{
		{"zero clamps to max", 0, MaxBatchSize},
		{"negative clamps to max", -4, MaxBatchSize},
		{"over max clamps to max", 500, MaxBatchSize},
		{"exactly max passes through", MaxBatchSize, MaxBatchSize},
		{"default passes through", DefaultBatchSize, DefaultBatchSize},
		{"one passes through", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{BatchSize: tt.configured}
			assert.Equal(t, tt.want, cfg.effectiveBatchSize())
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultBatchDelay, cfg.BatchDelay)
	assert.Empty(t, cfg.Include)
	assert.Empty(t, cfg.Exclude)
}
