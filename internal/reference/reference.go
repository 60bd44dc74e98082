// Package reference is the CPU reference classifier for the GPU kernel.
//
// It produces the same per-byte outputs and aggregate counters as
// turkish_preprocess.wgsl, decoding sequentially with unicode/utf8.
// The GPU path is verified against it.
package reference

import (
	"unicode"
	"unicode/utf8"
)

// Validation flags, one per input byte.
const (
	FlagStart        = 0
	FlagContinuation = 1
	FlagInvalid      = 2
)

// Counts are the five aggregate counters of a classification.
type Counts struct {
	ASCII     uint32
	Turkish   uint32
	OtherUTF8 uint32
	Invalid   uint32
	Boundary  uint32
}

// Array returns the counters in stats buffer order.
func (c Counts) Array() [5]uint32 {
	return [5]uint32{c.ASCII, c.Turkish, c.OtherUTF8, c.Invalid, c.Boundary}
}

// Classification holds the per-byte outputs of one classification.
// All slices have one element per input byte.
type Classification struct {
	Counts Counts

	Codepoints      []uint32
	Boundaries      []uint32
	SequenceIDs     []uint32
	ValidationFlags []uint32
}

// Classify classifies every byte of b.
func Classify(b []byte) Classification {
	n := len(b)
	c := Classification{
		Codepoints:      make([]uint32, n),
		Boundaries:      make([]uint32, n),
		SequenceIDs:     make([]uint32, n),
		ValidationFlags: make([]uint32, n),
	}

	for i := 0; i < n; {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			c.ValidationFlags[i] = FlagInvalid
			c.SequenceIDs[i] = uint32(i) //nolint:gosec // bounded by input length
			c.Counts.Invalid++
			i++
			continue
		}

		switch {
		case size == 1:
			c.Counts.ASCII++
		case IsTurkish(r):
			c.Counts.Turkish++
		default:
			c.Counts.OtherUTF8++
		}

		c.ValidationFlags[i] = FlagStart
		c.Codepoints[i] = uint32(r) //nolint:gosec // valid scalar
		for k := 0; k < size; k++ {
			c.SequenceIDs[i+k] = uint32(i) //nolint:gosec // bounded by input length
			if k > 0 {
				c.ValidationFlags[i+k] = FlagContinuation
			}
		}
		i += size
	}

	for i, x := range b {
		if IsSeparator(x) {
			c.Boundaries[i] = 1
			c.Counts.Boundary++
		}
	}
	return c
}

// Count returns only the aggregate counters of b.
func Count(b []byte) Counts {
	return Classify(b).Counts
}

// IsTurkish reports whether r is one of the Turkish-specific letters
// ç Ç ğ Ğ ı İ ö Ö ş Ş ü Ü.
func IsTurkish(r rune) bool {
	switch r {
	case 'ç', 'Ç', 'ğ', 'Ğ', 'ı', 'İ', 'ö', 'Ö', 'ş', 'Ş', 'ü', 'Ü':
		return true
	}
	return false
}

// IsSeparator reports whether b is an ASCII whitespace, punctuation or
// symbol byte, which the kernel marks as a word boundary.
func IsSeparator(b byte) bool {
	if b >= utf8.RuneSelf {
		return false
	}
	r := rune(b)
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
