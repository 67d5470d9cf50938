package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// buffer collects items for formats that emit one document at Flush.
// A single item is emitted on its own, several as a list.
type buffer struct {
	items   []any
	flushed bool
}

func (b *buffer) Write(data any) error {
	b.items = append(b.items, data)
	return nil
}

func (b *buffer) WriteAll(data []any) error {
	b.items = append(b.items, data...)
	return nil
}

func (b *buffer) document() any {
	if len(b.items) == 1 {
		return b.items[0]
	}
	if b.items == nil {
		return []any{}
	}
	return b.items
}

// pending returns the document to emit, or false when everything written so
// far has already been flushed.
func (b *buffer) pending() (any, bool) {
	if b.flushed && len(b.items) == 0 {
		return nil, false
	}
	doc := b.document()
	b.items = nil
	b.flushed = true
	return doc, true
}

// JSONWriter writes buffered items as one JSON document.
type JSONWriter struct {
	buffer
	w      *bufio.Writer
	pretty bool
	indent string
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// Flush writes the buffered items.
func (w *JSONWriter) Flush() error {
	doc, ok := w.pending()
	if !ok {
		return nil
	}

	var out []byte
	var err error
	if w.pretty {
		out, err = json.MarshalIndent(doc, "", w.indent)
	} else {
		out, err = json.Marshal(doc)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(append(out, '\n')); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes newline-delimited JSON, one line per item as it arrives.
type JSONLWriter struct {
	enc *json.Encoder
	w   *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	return &JSONLWriter{enc: json.NewEncoder(bw), w: bw}
}

// Write writes a single item as a JSON line.
func (w *JSONLWriter) Write(data any) error {
	if err := w.enc.Encode(data); err != nil {
		return err
	}
	return w.w.Flush()
}

// WriteAll writes multiple items as JSON lines.
func (w *JSONLWriter) WriteAll(data []any) error {
	for _, item := range data {
		if err := w.Write(item); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
