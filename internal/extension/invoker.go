package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Invoker consumes a finished descriptor, typically by handing it to the
// compiler driver that builds the extension.
type Invoker interface {
	Invoke(ctx context.Context, d Descriptor) error
}

// Configure builds a descriptor and, only if every step succeeded, passes it
// to inv.
func Configure(ctx context.Context, b *Builder, inv Invoker) (Descriptor, error) {
	d, err := b.Build(ctx)
	if err != nil {
		return Descriptor{}, err
	}
	if err := inv.Invoke(ctx, d.Clone()); err != nil {
		return Descriptor{}, fmt.Errorf("failed to hand off descriptor: %w", err)
	}
	return d, nil
}

// Format is a serialization of the descriptor.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (want json, yaml or toml)", s)
}

// Encode writes d to w in format f.
func Encode(w io.Writer, d Descriptor, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(d)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}

// WriterInvoker serializes the descriptor for a compiler driver that reads
// it from a file or pipe.
type WriterInvoker struct {
	W      io.Writer
	Format Format
}

// Invoke implements Invoker.
func (w WriterInvoker) Invoke(_ context.Context, d Descriptor) error {
	return Encode(w.W, d, w.Format)
}
