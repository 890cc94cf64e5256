package memory

import (
	"fmt"
	"math/bits"

	"github.com/apache/arrow-go/v18/arrow/bitutil"

	"github.com/NerdMeNot/keel/internal/unsafecast"
)

// WordBits is the number of validity bits packed into one bitmap word.
const WordBits = 32

// WordIndex returns the index of the word holding bit i.
func WordIndex(i int) int { return i / WordBits }

// BitOffset returns the position of bit i within its word.
func BitOffset(i int) uint { return uint(i % WordBits) }

// NumWords returns the number of words needed to hold n bits.
func NumWords(n int) int { return (n + WordBits - 1) / WordBits }

// MaskBytes returns the allocation size in bytes of a bitmap holding n bits.
func MaskBytes(n int) int { return AlignedSize(NumWords(n) * 4) }

// State describes how a new bitmap is initialized.
type State uint8

const (
	// Uninitialized leaves the bitmap contents unspecified.
	Uninitialized State = iota
	// AllValid sets every bit.
	AllValid
	// AllNull clears every bit.
	AllNull
)

// Bitmap is a packed validity bitmap: bit i set means row i is valid. Bits
// are stored LSB first, so the byte layout matches Arrow validity buffers and
// the word layout matches a little-endian host.
type Bitmap struct {
	buf   *Buffer
	bytes []byte
	words []uint32
	n     int
}

// NewBitmap allocates a bitmap of n bits from res.
func NewBitmap(res Resource, n int, state State) (*Bitmap, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid bitmap length %d", n)
	}
	buf, err := Allocate(res, MaskBytes(n))
	if err != nil {
		return nil, err
	}

	bm := wrap(buf, n)
	switch state {
	case AllValid:
		fillBytes(bm.bytes, 0xFF)
	case AllNull:
		fillBytes(bm.bytes, 0)
	}
	return bm, nil
}

// WrapBitmap creates a non-owning bitmap of n bits over b. b must hold at
// least NumWords(n) words.
func WrapBitmap(b []byte, n int) *Bitmap {
	if len(b) < NumWords(n)*4 {
		panic(fmt.Sprintf("bitmap of %d bits needs %d bytes, got %d", n, NumWords(n)*4, len(b)))
	}
	return wrap(WrapBuffer(b), n)
}

func wrap(buf *Buffer, n int) *Bitmap {
	data := buf.Bytes()
	return &Bitmap{
		buf:   buf,
		bytes: data,
		words: unsafecast.Slice[byte, uint32](data[:len(data)&^3]),
		n:     n,
	}
}

func fillBytes(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// Len returns the number of bits in the bitmap.
func (bm *Bitmap) Len() int { return bm.n }

// Bytes returns the raw bitmap bytes, including padding.
func (bm *Bitmap) Bytes() []byte { return bm.bytes }

// Words returns the bitmap as packed words, including padding.
func (bm *Bitmap) Words() []uint32 { return bm.words }

// Get reports whether bit i is set.
func (bm *Bitmap) Get(i int) bool {
	return bitutil.BitIsSet(bm.bytes, i)
}

// Set sets bit i to valid.
func (bm *Bitmap) Set(i int, valid bool) {
	bitutil.SetBitTo(bm.bytes, i, valid)
}

// SetRange sets bits [begin, end) to valid.
func (bm *Bitmap) SetRange(begin, end int, valid bool) {
	if end <= begin {
		return
	}
	bitutil.SetBitsTo(bm.bytes, int64(begin), int64(end-begin), valid)
}

// CountSet returns the number of set bits in [begin, end).
func (bm *Bitmap) CountSet(begin, end int) int {
	if end <= begin {
		return 0
	}
	return bitutil.CountSetBits(bm.bytes, begin, end-begin)
}

// CountUnset returns the number of unset bits in [begin, end).
func (bm *Bitmap) CountUnset(begin, end int) int {
	if end <= begin {
		return 0
	}
	return (end - begin) - bm.CountSet(begin, end)
}

// Release returns the bitmap storage to its resource. Borrowed bitmaps are
// only detached.
func (bm *Bitmap) Release() {
	if bm == nil {
		return
	}
	bm.buf.Release()
	bm.bytes, bm.words = nil, nil
}

// CopyBits copies n bits from src starting at srcOffset into dst starting at
// dstOffset. Bits outside the destination range are preserved.
func CopyBits(dst *Bitmap, dstOffset int, src *Bitmap, srcOffset, n int) {
	if n <= 0 {
		return
	}
	bitutil.CopyBitmap(src.bytes, srcOffset, n, dst.bytes, dstOffset)
}

// PopCount returns the number of set bits in w.
func PopCount(w uint32) int { return bits.OnesCount32(w) }
