package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "Yes\n", want: true},
		{input: "  y  \n", want: true},
		{input: "y", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
		{input: "yep\n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out := &bytes.Buffer{}
			c := newPromptConfirmer(strings.NewReader(tt.input), out)

			got, err := c.Confirm(context.Background(), "Delete?")

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Delete? [y/N]: ", out.String())
		})
	}
}

func TestPromptConfirmer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := &bytes.Buffer{}

	_, err := newPromptConfirmer(strings.NewReader("y\n"), out).Confirm(ctx, "Delete?")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestExitError(t *testing.T) {
	err := NewExitError(3)

	code, ok := IsExitError(err)
	assert.True(t, ok)
	assert.Equal(t, 3, code)
	assert.Equal(t, "exit status 3", err.Error())

	_, ok = IsExitError(assert.AnError)
	assert.False(t, ok)
}
