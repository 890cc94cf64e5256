// Package memory provides the allocation layer used by keel columns: a
// pluggable [Resource] that hands out raw byte buffers, owning [Buffer]
// handles, and word-packed validity [Bitmap]s.
package memory

import (
	"fmt"

	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrOutOfMemory is returned by a [Resource] that cannot satisfy a request.
var ErrOutOfMemory = errors.New("out of memory")

// Resource allocates and reclaims raw buffers. Every buffer returned by
// Allocate must be handed back to the same Resource through Deallocate,
// unmodified in length.
type Resource interface {
	Allocate(size int) ([]byte, error)
	Deallocate(b []byte)
}

// DefaultResource is used by operations that are not given a resource.
var DefaultResource Resource = FromArrow(arrowmem.DefaultAllocator)

// FromArrow adapts an arrow-go allocator into a Resource. Passing a
// [arrowmem.CheckedAllocator] makes leaked buffers visible in tests.
func FromArrow(alloc arrowmem.Allocator) Resource {
	if alloc == nil {
		alloc = arrowmem.DefaultAllocator
	}
	return &arrowResource{alloc: alloc}
}

type arrowResource struct {
	alloc arrowmem.Allocator
}

func (r *arrowResource) Allocate(size int) (b []byte, err error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid allocation size %d", size)
	}

	// Arrow allocators report exhaustion by panicking.
	defer func() {
		if rec := recover(); rec != nil {
			b, err = nil, errors.Wrapf(ErrOutOfMemory, "allocating %d bytes: %v", size, rec)
		}
	}()
	return r.alloc.Allocate(size), nil
}

func (r *arrowResource) Deallocate(b []byte) {
	r.alloc.Free(b)
}

// LimitedResource wraps another Resource and fails allocations once the
// number of outstanding bytes would exceed a limit.
type LimitedResource struct {
	inner Resource
	limit int64
	inUse atomic.Int64
}

// NewLimitedResource returns a LimitedResource allowing at most limit
// outstanding bytes from inner.
func NewLimitedResource(inner Resource, limit int64) *LimitedResource {
	if inner == nil {
		inner = DefaultResource
	}
	return &LimitedResource{inner: inner, limit: limit}
}

// Allocate implements Resource.
func (r *LimitedResource) Allocate(size int) ([]byte, error) {
	if used := r.inUse.Add(int64(size)); used > r.limit {
		r.inUse.Sub(int64(size))
		return nil, errors.Wrapf(ErrOutOfMemory, "allocating %d bytes with %d of %d in use", size, used-int64(size), r.limit)
	}

	b, err := r.inner.Allocate(size)
	if err != nil {
		r.inUse.Sub(int64(size))
		return nil, err
	}
	return b, nil
}

// Deallocate implements Resource.
func (r *LimitedResource) Deallocate(b []byte) {
	r.inUse.Sub(int64(len(b)))
	r.inner.Deallocate(b)
}

// InUse returns the number of bytes currently allocated through r.
func (r *LimitedResource) InUse() int64 {
	return r.inUse.Load()
}
