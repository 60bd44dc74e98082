package trscan

import "github.com/gogpu/trscan/internal/gpu"

// bytesPerMB is the divisor for throughput: one MB is 1,048,576 bytes.
const bytesPerMB = 1 << 20

// RawStats are the five counters read back from the kernel, in order
// ascii, turkish, other UTF-8, invalid, word boundary.
type RawStats [5]uint32

// Stats are the per-category byte counts of one input.
type Stats struct {
	// ASCIICount is the number of bytes below 0x80.
	ASCIICount uint32 `json:"asciiCount"`

	// TurkishCharCount is the number of valid Turkish-specific letters
	// (ç Ç ğ Ğ ı İ ö Ö ş Ş ü Ü).
	TurkishCharCount uint32 `json:"turkishCharCount"`

	// OtherUTF8Count is the number of other valid multi-byte characters.
	OtherUTF8Count uint32 `json:"otherUtf8Count"`

	// InvalidCount is the number of bytes not part of a valid UTF-8 sequence.
	InvalidCount uint32 `json:"invalidCount"`

	// BoundaryCount is the number of ASCII whitespace and punctuation bytes.
	BoundaryCount uint32 `json:"boundaryCount"`
}

// Result is the outcome of one Process call.
type Result struct {
	Stats Stats `json:"stats"`

	// ProcessingTime is the GPU time in milliseconds, from just before the
	// compute submission to its observed completion.
	ProcessingTime float64 `json:"processingTime"`

	// InputSize is the number of input bytes.
	InputSize int `json:"inputSize"`

	// Throughput is InputSize / (ProcessingTime / 1000) / 1,048,576 in MB/s.
	// It is 0 when ProcessingTime is not positive.
	Throughput float64 `json:"throughput"`
}

// Assemble builds a Result from the raw counters, the GPU time in
// milliseconds and the input size. It is pure arithmetic.
func Assemble(raw RawStats, processingTime float64, inputSize int) Result {
	r := Result{
		Stats: Stats{
			ASCIICount:       raw[gpu.CounterASCII],
			TurkishCharCount: raw[gpu.CounterTurkish],
			OtherUTF8Count:   raw[gpu.CounterOtherUTF8],
			InvalidCount:     raw[gpu.CounterInvalid],
			BoundaryCount:    raw[gpu.CounterBoundary],
		},
		ProcessingTime: processingTime,
		InputSize:      inputSize,
	}
	if processingTime > 0 {
		r.Throughput = float64(inputSize) / (processingTime / 1000) / bytesPerMB
	}
	return r
}

// Raw returns the counters in kernel order.
func (s Stats) Raw() RawStats {
	return RawStats{s.ASCIICount, s.TurkishCharCount, s.OtherUTF8Count, s.InvalidCount, s.BoundaryCount}
}

// Characters returns the number of valid characters.
func (s Stats) Characters() uint32 {
	return s.ASCIICount + s.TurkishCharCount + s.OtherUTF8Count
}
