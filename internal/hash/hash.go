// Package hash derives the stable identities used for runtime dispatch:
// functions, instance functions and type tags are all addressed by a Hash.
package hash

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"

	"github.com/therealbnut/rune/internal/item"
)

// Hash is the identity of a function, type or protocol.
type Hash uint64

// Domain separators, so that an item and a plain name with the same
// spelling never collide.
const (
	tagName     = 0x01
	tagType     = 0x02
	tagInstance = 0x03
	tagParams   = 0x04
	tagBlock    = 0x10
	tagClosure  = 0x11
	tagString   = 0x12
)

func (h Hash) String() string {
	return fmt.Sprintf("0x%016x", uint64(h))
}

type builder struct {
	buf []byte
}

func (b *builder) tag(t byte) {
	b.buf = append(b.buf, t)
}

func (b *builder) str(s string) {
	s = norm.NFC.String(s)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(s)))
	b.buf = append(b.buf, s...)
}

func (b *builder) u64(v uint64) {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, v)
}

func (b *builder) sum() Hash {
	h, err := blake2b.New(8, nil)
	if err != nil {
		// Only reachable with an invalid digest size.
		panic(err)
	}
	h.Write(b.buf)
	return Hash(binary.LittleEndian.Uint64(h.Sum(nil)))
}

// Of hashes a single name, such as the name of an instance function.
func Of(name string) Hash {
	var b builder
	b.tag(tagName)
	b.str(name)
	return b.sum()
}

// TypeHash hashes a fully qualified item. Free functions, tuple
// constructors and types are all dispatched through it.
func TypeHash(it item.Item) Hash {
	var b builder
	b.tag(tagType)
	for _, c := range it {
		switch c.Kind {
		case item.KindBlock:
			b.tag(tagBlock)
			b.u64(uint64(c.ID))
		case item.KindClosure:
			b.tag(tagClosure)
			b.u64(uint64(c.ID))
		default:
			b.tag(tagString)
			b.str(c.Name)
		}
	}
	return b.sum()
}

// InstanceFunction combines a receiver type and a function name hash.
func InstanceFunction(typ, name Hash) Hash {
	var b builder
	b.tag(tagInstance)
	b.u64(uint64(typ))
	b.u64(uint64(name))
	return b.sum()
}

// Params hashes a base identity together with a list of type parameters.
func Params(base Hash, params ...Hash) Hash {
	var b builder
	b.tag(tagParams)
	b.u64(uint64(base))
	for _, p := range params {
		b.u64(uint64(p))
	}
	return b.sum()
}

// Protocol hashes used by the compiler for loops.
var (
	IntoIter = Of("into_iter")
	Next     = Of("next")
)
