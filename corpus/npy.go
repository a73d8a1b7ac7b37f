package corpus

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/vibecheck/core"
)

var npyMagic = []byte("\x93NUMPY")

var (
	descrPattern   = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	fortranPattern = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapePattern   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// DecodeNPY parses a 2-D little-endian float32 or float64 NumPy array in C
// order. Float64 data is narrowed to float32.
func DecodeNPY(data []byte) (*core.EmbeddingMatrix, error) {
	if len(data) < 10 || !bytes.Equal(data[:6], npyMagic) {
		return nil, fmt.Errorf("%w: npy: bad magic", core.ErrValidation)
	}

	major := data[6]
	var headerLen, offset int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(data[8:10]))
		offset = 10
	case 2, 3:
		if len(data) < 12 {
			return nil, fmt.Errorf("%w: npy: truncated header", core.ErrValidation)
		}
		headerLen = int(binary.LittleEndian.Uint32(data[8:12]))
		offset = 12
	default:
		return nil, fmt.Errorf("%w: npy: unsupported version %d", core.ErrValidation, major)
	}
	if len(data) < offset+headerLen {
		return nil, fmt.Errorf("%w: npy: truncated header", core.ErrValidation)
	}
	header := string(data[offset : offset+headerLen])
	body := data[offset+headerLen:]

	descr := descrPattern.FindStringSubmatch(header)
	if descr == nil {
		return nil, fmt.Errorf("%w: npy: header has no descr", core.ErrValidation)
	}
	if m := fortranPattern.FindStringSubmatch(header); m != nil && m[1] == "True" {
		return nil, fmt.Errorf("%w: npy: fortran order is not supported", core.ErrValidation)
	}
	rows, dim, err := parseShape(header)
	if err != nil {
		return nil, err
	}

	var width int
	switch descr[1] {
	case "<f4":
		width = 4
	case "<f8":
		width = 8
	default:
		return nil, fmt.Errorf("%w: npy: unsupported dtype %q", core.ErrValidation, descr[1])
	}
	if len(body) != rows*dim*width {
		return nil, fmt.Errorf("%w: npy: body has %d bytes, want %d", core.ErrValidation, len(body), rows*dim*width)
	}

	values := make([]float32, rows*dim)
	for i := range values {
		if width == 4 {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
		} else {
			values[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(body[i*8:])))
		}
	}
	return &core.EmbeddingMatrix{Rows: rows, Dim: dim, Data: values}, nil
}

func parseShape(header string) (int, int, error) {
	m := shapePattern.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: npy: header has no shape", core.ErrValidation)
	}
	var dims []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("%w: npy: bad shape %q", core.ErrValidation, m[1])
		}
		dims = append(dims, n)
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("%w: npy: expected a 2-d array, got shape (%s)", core.ErrValidation, m[1])
	}
	return dims[0], dims[1], nil
}

// EncodeNPY writes m as a version 1.0 '<f4' NumPy array.
func EncodeNPY(m *core.EmbeddingMatrix) []byte {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", m.Rows, m.Dim)
	// Pad so that magic + version + length + header + newline is a multiple of 64.
	total := len(npyMagic) + 2 + 2 + len(header) + 1
	if rem := total % 64; rem != 0 {
		header += strings.Repeat(" ", 64-rem)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.Grow(len(npyMagic) + 4 + len(header) + len(m.Data)*4)
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	var word [4]byte
	for _, v := range m.Data {
		binary.LittleEndian.PutUint32(word[:], math.Float32bits(v))
		buf.Write(word[:])
	}
	return buf.Bytes()
}
