package memory

import (
	"github.com/NerdMeNot/keel/internal/unsafecast"
)

// Buffer is an owning handle over bytes obtained from a Resource. A Buffer
// created by [WrapBuffer] borrows its bytes and never returns them anywhere.
type Buffer struct {
	data []byte
	res  Resource
}

// Allocate obtains size bytes from res. Errors from res are returned
// unchanged.
func Allocate(res Resource, size int) (*Buffer, error) {
	if res == nil {
		res = DefaultResource
	}
	data, err := res.Allocate(size)
	if err != nil {
		return nil, err
	}
	return &Buffer{data: data, res: res}, nil
}

// WrapBuffer creates a non-owning Buffer over data.
func WrapBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the buffer contents. Bytes of a released buffer is nil.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the size of the buffer in bytes.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Release hands the bytes back to the owning Resource. Release is
// idempotent.
func (b *Buffer) Release() {
	if b == nil || b.data == nil {
		return
	}
	if b.res != nil {
		b.res.Deallocate(b.data)
	}
	b.data = nil
	b.res = nil
}

// Values reinterprets the buffer as a slice of T.
func Values[T any](b *Buffer) []T {
	return unsafecast.Slice[byte, T](b.Bytes())
}

// AlignedSize rounds size up to the 64 byte allocation granularity used for
// every column buffer.
func AlignedSize(size int) int {
	return (size + 63) &^ 63
}
