package core

// input.go prepares raw export bytes for tokenizing.
//
// Exports saved by desktop tools often start with a byte order mark, and some
// contain stray invalid UTF-8. ReadInput decodes through x/text so that a
// UTF-8 BOM is dropped, a UTF-16 BOM switches decoding, and invalid bytes
// become U+FFFD instead of failing the import.

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// countingReader tracks raw bytes read, before decoding.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ReadInput reads an export into a string. A maxSize greater than zero caps
// the raw size; larger inputs fail with ErrFileTooLarge.
func ReadInput(r io.Reader, maxSize int64) (string, error) {
	counter := &countingReader{r: r}

	var src io.Reader = counter
	if maxSize > 0 {
		src = io.LimitReader(counter, maxSize+1)
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(src, decoder))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if maxSize > 0 && counter.n > maxSize {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxSize)
	}
	return string(data), nil
}
