package validator

import "sort"

// locator maps a byte offset into the document into a 1-based line/column
// pair. It is built once from the fully buffered input, mirroring the
// teacher's approach of precomputing newline offsets rather than tracking
// line/column incrementally through the decoder (simpler, and the
// stdlib xml.Decoder only exposes InputOffset, not line/column directly).
type locator struct {
	lineStarts []int
}

func newLocator(data []byte) *locator {
	starts := []int{0}
	for i, b := range data {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &locator{lineStarts: starts}
}

// position returns the 1-based (line, column) for offset. offset is taken
// as reported by decoder.InputOffset() immediately after a token is
// consumed, so it points just past the token rather than at its start;
// this is an approximation the teacher's own streaming reader accepts.
func (l *locator) position(offset int) (line, column int) {
	i := sort.Search(len(l.lineStarts), func(i int) bool {
		return l.lineStarts[i] > offset
	}) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - l.lineStarts[i] + 1
}
