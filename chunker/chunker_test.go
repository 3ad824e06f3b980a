package chunker

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serialize drives a Chunker to exhaustion, rendering data events with
// a trailing "." and boundary events as "|" — the format spec.md §8
// scenario 1 pins down exactly.
func serialize(t *testing.T, c *Chunker) string {
	t.Helper()
	var sb strings.Builder
	for {
		data, boundary, err := c.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if boundary {
			sb.WriteByte('|')
		} else {
			sb.Write(data)
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

func boundaryPositions(t *testing.T, data []byte, nbits uint, bufSize int) []int {
	t.Helper()
	c := New(bytes.NewReader(data), nbits, bufSize)
	var positions []int
	consumed := 0
	for {
		d, boundary, err := c.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if boundary {
			positions = append(positions, consumed-1)
		} else {
			consumed += len(d)
		}
	}
	return positions
}

func TestFixedExampleExactOutput(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz1234567890")
	c := New(bytes.NewReader(data), 3, 8)
	got := serialize(t, c)
	want := "abcdefgh.ijk.|lmno.|p.q.|rstuvw.|x.yz123.|456.7890.|"
	assert.Equal(t, want, got)
}

func TestDeterminismUnderAnyReadChunking(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, 0123456789, " +
		strings.Repeat("filler-bytes-for-a-longer-stream;", 20))

	baseline := boundaryPositions(t, data, 13, 64*1024)

	for _, bufSize := range []int{1, 2, 3, 7, 16, 64, 4096} {
		got := boundaryPositions(t, data, 13, bufSize)
		assert.Equal(t, baseline, got, "bufSize=%d should yield identical boundaries", bufSize)
	}
}

func TestDeterminismAcrossMultiReadSplits(t *testing.T) {
	data := []byte(strings.Repeat("determinism matters a great deal here. ", 50))

	whole := boundaryPositions(t, data, 10, 64*1024)

	// A reader that hands back bytes in small, irregular pieces.
	irregular := &chunkedReader{data: data, sizes: []int{1, 5, 2, 9, 3, 40, 1, 1, 1}}
	c := New(irregular, 10, 4096)
	var positions []int
	consumed := 0
	for {
		d, boundary, err := c.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if boundary {
			positions = append(positions, consumed-1)
		} else {
			consumed += len(d)
		}
	}
	assert.Equal(t, whole, positions)
}

// chunkedReader returns bytes in a fixed rotation of read sizes,
// regardless of the caller's buffer capacity, to exercise chunker
// determinism under irregular read granularity (P1).
type chunkedReader struct {
	data []byte
	pos  int
	sizes []int
	sizeIdx int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.sizes[r.sizeIdx%len(r.sizes)]
	r.sizeIdx++
	if n > len(p) {
		n = len(p)
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	var err error
	if r.pos >= len(r.data) {
		err = io.EOF
	}
	return n, err
}

func TestEmptyStreamYieldsNoEvents(t *testing.T) {
	c := New(bytes.NewReader(nil), 13, 64)
	_, _, err := c.Next()
	assert.Equal(t, io.EOF, err)
}

func TestIOErrorSurfacedVerbatim(t *testing.T) {
	boom := assert.AnError
	c := New(&erroringReader{err: boom}, 13, 64)
	_, _, err := c.Next()
	assert.Equal(t, boom, err)
}

type erroringReader struct{ err error }

func (r *erroringReader) Read([]byte) (int, error) { return 0, r.err }
