package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader_ReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain line", "GARCÍA\n", "GARCÍA", nil},
		{"surrounding whitespace", "  1  \n", "1", nil},
		{"windows newline", "S\r\n", "S", nil},
		{"empty line", "\n", "", nil},
		{"last line without newline", "12.50", "12.50", nil},
		{"no input", "", "", io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLineReader(strings.NewReader(tt.input)).ReadLine(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLineReader_SequentialLines(t *testing.T) {
	r := NewLineReader(strings.NewReader("A\nB\nC\n"))
	ctx := context.Background()

	for _, want := range []string{"A", "B", "C"} {
		got, err := r.ReadLine(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineReader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	_, err := NewLineReader(pr).ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestLineReader_LineTypedAfterCancelIsKept(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()
	r := NewLineReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.ReadLine(ctx)
	require.ErrorIs(t, err, ErrInputCancelled)

	go func() { _, _ = pw.Write([]byte("M\n")) }()

	got, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "M", got)
}
