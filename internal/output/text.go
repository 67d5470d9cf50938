package output

import (
	"bufio"
	"fmt"
	"io"
)

// Texter is implemented by values with a plain-text rendering.
type Texter interface {
	Text() string
}

// TextWriter writes the plain-text rendering of each item, one per block.
type TextWriter struct {
	w       *bufio.Writer
	written int
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// Write writes a single item. Items after the first are separated by a blank line.
func (w *TextWriter) Write(data any) error {
	if w.written > 0 {
		if _, err := w.w.WriteString("\n"); err != nil {
			return err
		}
	}

	var text string
	switch v := data.(type) {
	case Texter:
		text = v.Text()
	case string:
		text = v
	default:
		text = fmt.Sprint(v)
	}

	if _, err := w.w.WriteString(text); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	w.written++
	return w.w.Flush()
}

// WriteAll writes multiple items.
func (w *TextWriter) WriteAll(data []any) error {
	for _, item := range data {
		if err := w.Write(item); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the buffer.
func (w *TextWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}
