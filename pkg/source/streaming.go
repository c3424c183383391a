// pkg/source/streaming.go
package source

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// utf8BOM is the byte order mark some exporters prepend to CSV files. It
// would otherwise end up glued to the first header name.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newBOMStrippingReader returns a buffered reader positioned past a leading
// UTF-8 BOM when one is present, along with the number of bytes skipped.
func newBOMStrippingReader(r io.Reader) (*bufio.Reader, int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	head, err := br.Peek(len(utf8BOM))
	if err != nil {
		// Files shorter than the BOM are handed through untouched; the
		// CSV reader reports its own error for truncated input.
		if err == io.EOF {
			return br, 0, nil
		}
		return nil, 0, err
	}
	if head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, 0, err
		}
		return br, int64(len(utf8BOM)), nil
	}
	return br, 0, nil
}

// utf8SanitizingReader replaces bytes that are not valid UTF-8 with '?' as
// they stream past. Every replacement is byte for byte, so offsets reported
// downstream still match positions in the file.
type utf8SanitizingReader struct {
	r       io.Reader
	pending [utf8.UTFMax]byte
	npend   int
}

func newUTF8SanitizingReader(r io.Reader) *utf8SanitizingReader {
	return &utf8SanitizingReader{r: r}
}

// Read implements io.Reader.
func (s *utf8SanitizingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		head := copy(p, s.pending[:s.npend])
		s.npend = 0
		n, err := s.r.Read(p[head:])
		total := head + n
		if total == 0 {
			return 0, err
		}
		buf := p[:total]
		if asciiOnly(buf) {
			return total, err
		}
		kept := s.sanitize(buf, err != nil)
		if kept > 0 || err != nil || n == 0 {
			return kept, err
		}
		// Everything read so far is a rune fragment waiting on more bytes.
	}
}

// sanitize rewrites buf in place, replacing invalid bytes with '?'. A rune
// fragment at the end of buf is held back for the next read unless last is
// set. Returns the number of bytes to surface.
func (s *utf8SanitizingReader) sanitize(buf []byte, last bool) int {
	write := 0
	for i := 0; i < len(buf); {
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size <= 1 {
			rest := buf[i:]
			if !last && utf8.RuneStart(rest[0]) && !utf8.FullRune(rest) {
				s.npend = copy(s.pending[:], rest)
				return write
			}
			buf[write] = '?'
			write++
			i++
			continue
		}
		copy(buf[write:], buf[i:i+size])
		write += size
		i += size
	}
	return write
}

func asciiOnly(buf []byte) bool {
	for _, b := range buf {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
