package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{"create", OpCreate, "CREATE"},
		{"modify", OpModify, "MODIFY"},
		{"delete", OpDelete, "DELETE"},
		{"unknown", Operation(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 500*time.Millisecond, opts.DebounceWindow)
	assert.Equal(t, 2*time.Second, opts.PollInterval)
	assert.Equal(t, 16, opts.EventBufferSize)
	assert.False(t, opts.ForcePolling)
	require.NoError(t, opts.Validate())
}

func TestOptions_Validate_RejectsNegatives(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"debounce", Options{DebounceWindow: -time.Second}},
		{"poll interval", Options{PollInterval: -time.Second}},
		{"buffer", Options{EventBufferSize: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want Options
	}{
		{
			name: "empty options get defaults",
			opts: Options{},
			want: DefaultOptions(),
		},
		{
			name: "partial options keep custom values",
			opts: Options{DebounceWindow: 50 * time.Millisecond, ForcePolling: true},
			want: Options{
				DebounceWindow:  50 * time.Millisecond,
				PollInterval:    2 * time.Second,
				EventBufferSize: 16,
				ForcePolling:    true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.WithDefaults())
		})
	}
}
