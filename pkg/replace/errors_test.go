package replace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestNewFault(t *testing.T) {
	cause := errors.Base("boom")

	tests := []struct {
		name    string
		cause   error
		wantMsg string
	}{
		{name: "with_cause", cause: cause, wantMsg: "record fetch failed: table tbl1 page 2: boom"},
		{name: "without_cause", cause: nil, wantMsg: "record fetch failed: table tbl1 page 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newFault(ErrRecordFetch, tt.cause, "table %s page %d", "tbl1", 2)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error(), "message should be prefixed with the kind")
			assert.True(t, errors.Is(err, ErrRecordFetch), "kind should match")
			if tt.cause != nil {
				assert.True(t, errors.Is(err, tt.cause), "cause should match")
			}

			var st interface{ StackTrace() []uintptr }
			require.True(t, errors.As(err, &st), "fault should carry a stack trace")
			assert.NotEmpty(t, st.StackTrace(), "stack trace should be recorded")
		})
	}
}
