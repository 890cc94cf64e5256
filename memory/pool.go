package memory

import (
	"sync"
)

// maxPooledBucket is the largest power-of-two bucket kept in a PoolResource.
// Larger requests are served directly from the Go heap and dropped on
// Deallocate.
const maxPooledBucket = 30

// PoolResource is a Resource that recycles buffers through power-of-two
// sized sync.Pool buckets. Recycled buffers are not cleared: callers must not
// assume newly allocated memory is zeroed.
type PoolResource struct {
	pools [maxPooledBucket + 1]sync.Pool
}

// NewPoolResource creates an empty PoolResource.
func NewPoolResource() *PoolResource {
	p := &PoolResource{}
	for i := range p.pools {
		size := 1 << i
		p.pools[i].New = func() interface{} {
			b := make([]byte, size)
			return &b
		}
	}
	return p
}

// getBucket returns the pool bucket index for a given size
func getBucket(size int) int {
	if size <= 1 {
		return 0
	}
	// Find the smallest power of 2 >= size
	bucket := 0
	n := size - 1
	for n > 0 {
		n >>= 1
		bucket++
	}
	return bucket
}

// Allocate implements Resource.
func (p *PoolResource) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrOutOfMemory
	}

	bucket := getBucket(size)
	if bucket > maxPooledBucket {
		return make([]byte, size), nil
	}

	b := p.pools[bucket].Get().(*[]byte)
	return (*b)[:size], nil
}

// Deallocate implements Resource.
func (p *PoolResource) Deallocate(b []byte) {
	bucket := getBucket(cap(b))
	if bucket > maxPooledBucket || cap(b) != 1<<bucket {
		// Not a buffer this pool handed out; let the GC have it.
		return
	}
	b = b[:cap(b)]
	p.pools[bucket].Put(&b)
}
