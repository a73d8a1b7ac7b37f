package corpus

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/poiesic/vibecheck/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNPY_RoundTrip(t *testing.T) {
	m := &core.EmbeddingMatrix{Rows: 3, Dim: 2, Data: []float32{0.1, 0.2, 0.3, 0.4, -0.5, 1}}
	data := EncodeNPY(m)

	// Header block is 64-byte aligned.
	headerLen := int(binary.LittleEndian.Uint16(data[8:10]))
	assert.Zero(t, (10+headerLen)%64)

	got, err := DecodeNPY(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDecodeNPY_Float64(t *testing.T) {
	header := "{'descr': '<f8', 'fortran_order': False, 'shape': (2, 1), }\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{2, 0})
	binary.Write(&buf, binary.LittleEndian, uint32(len(header)))
	buf.WriteString(header)
	for _, v := range []float64{0.25, -2} {
		binary.Write(&buf, binary.LittleEndian, math.Float64bits(v))
	}

	got, err := DecodeNPY(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rows)
	assert.Equal(t, 1, got.Dim)
	assert.Equal(t, []float32{0.25, -2}, got.Data)
}

func TestDecodeNPY_Errors(t *testing.T) {
	valid := EncodeNPY(&core.EmbeddingMatrix{Rows: 1, Dim: 2, Data: []float32{1, 2}})

	tests := []struct {
		name string
		data []byte
	}{
		{"bad magic", []byte("not an npy file at all")},
		{"truncated body", valid[:len(valid)-1]},
		{"unsupported dtype", bytes.Replace(valid, []byte("<f4"), []byte("<i4"), 1)},
		{"fortran order", bytes.Replace(valid, []byte("False"), []byte("True "), 1)},
		{"one dimensional", bytes.Replace(valid, []byte("(1, 2)"), []byte("(2,)  "), 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNPY(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}
