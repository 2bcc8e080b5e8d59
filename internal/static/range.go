package static

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMalformedRange marks a Range header that cannot be parsed. Callers
	// serve the whole file instead of failing the request.
	ErrMalformedRange = errors.New("malformed range header")

	// ErrRangeNotSatisfiable is returned when the range starts at or past the
	// end of the file.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

const rangeUnit = "bytes="

// RequestedRange is a Range header as sent by the client, before it is
// checked against the file size. A missing bound is left unset.
type RequestedRange struct {
	Start    int64
	End      int64
	HasStart bool
	HasEnd   bool
}

// RangeSpec is an inclusive byte range that fits inside the file.
type RangeSpec struct {
	Start int64
	End   int64
	Size  int64
}

// Length is the number of bytes the range covers.
func (s RangeSpec) Length() int64 {
	return s.End - s.Start + 1
}

// ContentRange formats the Content-Range header value.
func (s RangeSpec) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", s.Start, s.End, s.Size)
}

// ParseRange parses a single "bytes=<start>-<end>" range where either bound
// may be omitted. Multiple ranges, other units and non-numeric bounds all
// yield ErrMalformedRange.
func ParseRange(header string) (RequestedRange, error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), rangeUnit)
	if !ok {
		return RequestedRange{}, fmt.Errorf("%w: missing %q unit", ErrMalformedRange, rangeUnit)
	}

	startText, endText, ok := strings.Cut(spec, "-")
	if !ok || strings.Contains(endText, "-") {
		return RequestedRange{}, fmt.Errorf("%w: %q", ErrMalformedRange, header)
	}

	var (
		req RequestedRange
		err error
	)

	if startText = strings.TrimSpace(startText); startText != "" {
		if req.Start, err = parseBound(startText); err != nil {
			return RequestedRange{}, err
		}
		req.HasStart = true
	}

	if endText = strings.TrimSpace(endText); endText != "" {
		if req.End, err = parseBound(endText); err != nil {
			return RequestedRange{}, err
		}
		req.HasEnd = true
	}

	if req.HasStart && req.HasEnd && req.End < req.Start {
		return RequestedRange{}, fmt.Errorf("%w: end %d before start %d", ErrMalformedRange, req.End, req.Start)
	}

	return req, nil
}

// parseBound reads a non-negative decimal bound. Values past int64 saturate
// to math.MaxInt64 so Resolve clamps or rejects them like any other
// oversized bound.
func parseBound(text string) (int64, error) {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && allDigits(text) {
			return math.MaxInt64, nil
		}
		return 0, fmt.Errorf("%w: bad bound %q", ErrMalformedRange, text)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: bad bound %q", ErrMalformedRange, text)
	}
	return n, nil
}

func allDigits(text string) bool {
	for _, c := range text {
		if c < '0' || c > '9' {
			return false
		}
	}
	return text != ""
}

// Resolve fits the requested range to a file of the given size. A missing
// start means 0, so "bytes=-500" reads from the beginning of the file rather
// than returning the last 500 bytes.
func (r RequestedRange) Resolve(size int64) (RangeSpec, error) {
	start := int64(0)
	if r.HasStart {
		start = r.Start
	}

	if start >= size {
		return RangeSpec{}, fmt.Errorf("%w: start %d, size %d", ErrRangeNotSatisfiable, start, size)
	}

	end := size - 1
	if r.HasEnd && r.End < end {
		end = r.End
	}

	return RangeSpec{Start: start, End: end, Size: size}, nil
}
