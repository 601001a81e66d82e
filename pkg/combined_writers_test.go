package pkg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestCombinedWriter(t *testing.T) {
	buf1 := &bytes.Buffer{}
	buf2 := &bytes.Buffer{}

	cw := NewCombinedWriter(buf1, buf2)
	n, err := cw.Write([]byte("log line"))
	require.NoError(t, err)

	assert.Equal(t, len("log line")*2, n)
	assert.Equal(t, "log line", buf1.String())
	assert.Equal(t, "log line", buf2.String())
}

func TestCombinedWriter_partialFailure(t *testing.T) {
	buf := &bytes.Buffer{}

	cw := NewCombinedWriter(failingWriter{}, buf)
	n, err := cw.Write([]byte("log line"))
	assert.Error(t, err)

	// the healthy writer still got the data
	assert.Equal(t, len("log line"), n)
	assert.Equal(t, "log line", buf.String())
}
