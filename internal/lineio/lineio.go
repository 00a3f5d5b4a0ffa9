// Package lineio provides the trimmed-line iterator the sender reads
// operator commands from.
package lineio

import (
	"bufio"
	"io"
	"strings"
)

// Source yields trimmed text lines until the underlying reader hits
// EOF, at which point Next returns io.EOF and the sender's loop ends.
type Source struct {
	scanner *bufio.Scanner
}

// NewSource wraps r (typically os.Stdin) as a line Source.
func NewSource(r io.Reader) *Source {
	return &Source{scanner: bufio.NewScanner(r)}
}

// Next returns the next trimmed line, or io.EOF once the reader is
// exhausted, or the scanner's own error if a read failed.
func (s *Source) Next() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}
