// Package responseformat encodes run results as JSON, MessagePack, CSV or an
// aligned text table.
package responseformat

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/vmihailenco/msgpack/v5"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgPack Format = "msgpack"
	FormatCSV     Format = "csv"
	FormatText    Format = "text"
)

// ErrUnknownFormat is returned by ParseFormat for an unsupported name.
var ErrUnknownFormat = errors.New("unknown output format")

// ErrNotTabular is returned when CSV or text output is requested for data
// that has no table form.
var ErrNotTabular = errors.New("data has no tabular form")

// Tabular is implemented by results that can be written as rows.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// ParseFormat resolves a format name. The empty name selects JSON.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatMsgPack, FormatCSV, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Formatter handles encoding and writing results in one format
type Formatter struct {
	format Format
	indent bool
}

// NewFormatter creates a new formatter for format
func NewFormatter(format Format) *Formatter {
	if format == "" {
		format = FormatJSON
	}
	return &Formatter{format: format, indent: true}
}

// Compact disables JSON indentation.
func (f *Formatter) Compact() *Formatter {
	f.indent = false
	return f
}

// Format returns the encoding in use.
func (f *Formatter) Format() Format {
	return f.format
}

// Write encodes data to w. CSV and text need data to implement Tabular.
func (f *Formatter) Write(w io.Writer, data any) error {
	switch f.format {
	case FormatMsgPack:
		return f.writeMsgPack(w, data)
	case FormatCSV:
		t, ok := data.(Tabular)
		if !ok {
			return fmt.Errorf("%w: %T", ErrNotTabular, data)
		}
		return f.writeCSV(w, t)
	case FormatText:
		t, ok := data.(Tabular)
		if !ok {
			return fmt.Errorf("%w: %T", ErrNotTabular, data)
		}
		return f.writeText(w, t)
	default:
		return f.writeJSON(w, data)
	}
}

func (f *Formatter) writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

func (f *Formatter) writeMsgPack(w io.Writer, data any) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}

func (f *Formatter) writeCSV(w io.Writer, t Tabular) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows()); err != nil {
		return err
	}
	return cw.Error()
}

func (f *Formatter) writeText(w io.Writer, t Tabular) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Header(), "\t"))
	for _, row := range t.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Decode reads one msgpack value written by a FormatMsgPack formatter into v.
func Decode(r io.Reader, v any) error {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
