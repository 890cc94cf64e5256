package keel

import (
	"github.com/NerdMeNot/keel/memory"
)

type options struct {
	resource        memory.Resource
	stream          *Stream
	negativeIndices bool
	concatStrategy  ConcatStrategy
}

// Option configures a single operation.
type Option func(*options)

// WithResource allocates every new buffer of the operation from r.
func WithResource(r memory.Resource) Option {
	return func(o *options) { o.resource = r }
}

// WithStream issues the operation's kernels on s.
func WithStream(s *Stream) Option {
	return func(o *options) { o.stream = s }
}

// WithNegativeIndices lets Gather interpret a negative index i as
// i + num_rows.
func WithNegativeIndices() Option {
	return func(o *options) { o.negativeIndices = true }
}

// WithConcatStrategy overrides strategy selection for fixed-width
// concatenation.
func WithConcatStrategy(s ConcatStrategy) Option {
	return func(o *options) { o.concatStrategy = s }
}

func newOptions(opts []Option) options {
	o := options{
		resource: memory.DefaultResource,
		stream:   DefaultStream(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resource == nil {
		o.resource = memory.DefaultResource
	}
	if o.stream == nil {
		o.stream = DefaultStream()
	}
	return o
}

// allocate obtains size bytes for a new column buffer.
func (o options) allocate(size int) (*memory.Buffer, error) {
	buf, err := memory.Allocate(o.resource, size)
	if err != nil {
		return nil, err
	}
	o.stream.metrics.allocatedBytes.Add(float64(size))
	return buf, nil
}

// allocateMask obtains a validity bitmap for n rows.
func (o options) allocateMask(n int, state memory.State) (*memory.Bitmap, error) {
	mask, err := memory.NewBitmap(o.resource, n, state)
	if err != nil {
		return nil, err
	}
	o.stream.metrics.allocatedBytes.Add(float64(memory.MaskBytes(n)))
	return mask, nil
}
