// Package producer supplies raw run payloads to the engine.
//
// The engine only sees the Producer interface. Retry is layered here, on
// the caller side, and never inside the scheduler.
package producer

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/runview/internal/model"
)

// Producer fetches the current raw payload.
type Producer interface {
	Produce(ctx context.Context) (*model.Payload, error)
}

// Func adapts a function to Producer.
type Func func(ctx context.Context) (*model.Payload, error)

// Produce calls f.
func (f Func) Produce(ctx context.Context) (*model.Payload, error) {
	return f(ctx)
}

// File reads the payload from a JSON document on disk, typically the saved
// output of the experiment tool.
type File struct {
	Path string
}

// NewFile creates a producer reading path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Produce opens, decodes and parses the file.
func (f *File) Produce(ctx context.Context) (*model.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open payload %s: %w", f.Path, err)
	}
	defer r.Close()

	p, err := model.DecodePayload(r)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", f.Path, err)
	}
	return p, nil
}
