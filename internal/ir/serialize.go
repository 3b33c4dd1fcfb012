package ir

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"sort"

	"fortio.org/safecast"
	"github.com/nikandfor/errors"
	"github.com/oklog/ulid/v2"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/token"
)

var magicV1 = [4]byte{'R', 'N', 'C', '1'}

var ErrBadMagic = errors.New("invalid magic header")

func WriteUnitToFile(filename string, u *Unit) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create %v", filename)
	}
	defer func() {
		if e := f.Close(); err == nil && e != nil {
			err = errors.Wrap(e, "close %v", filename)
		}
	}()

	w := bufio.NewWriter(f)
	if err := WriteUnit(w, u); err != nil {
		return err
	}
	return w.Flush()
}

func ReadUnitFromFile(filename string) (*Unit, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open %v", filename)
	}
	defer f.Close()
	return ReadUnit(bufio.NewReader(f))
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) put(v interface{}) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(e.w, binary.LittleEndian, v)
}

func (e *encoder) int(v int) {
	if e.err != nil {
		return
	}
	n, err := safecast.Convert[int32](v)
	if err != nil {
		e.err = errors.Wrap(err, "operand %d", v)
		return
	}
	e.put(n)
}

func (e *encoder) len(n int) {
	if e.err != nil {
		return
	}
	v, err := safecast.Convert[uint32](n)
	if err != nil {
		e.err = errors.Wrap(err, "length %d", n)
		return
	}
	e.put(v)
}

func (e *encoder) bytes(b []byte) {
	e.len(len(b))
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) str(s string) {
	e.bytes([]byte(s))
}

func (e *encoder) item(it item.Item) {
	e.len(len(it))
	for _, c := range it {
		e.put(uint8(c.Kind))
		switch c.Kind {
		case item.KindString:
			e.str(c.Name)
		default:
			e.int(c.ID)
		}
	}
}

func (e *encoder) bool(b bool) {
	var v uint8
	if b {
		v = 1
	}
	e.put(v)
}

const (
	flagInt = 1 << iota
	flagFloat
	flagHash
	flagEnum
	flagCheck
	flagExact
)

func (e *encoder) instruction(in Instruction) {
	e.put(uint8(in.Op))
	e.int(in.A)
	e.int(in.B)

	var flags uint8
	if in.Int != 0 {
		flags |= flagInt
	}
	if in.Float != 0 {
		flags |= flagFloat
	}
	if in.Hash != 0 {
		flags |= flagHash
	}
	if in.Enum != 0 {
		flags |= flagEnum
	}
	if in.Check != (TypeCheck{}) {
		flags |= flagCheck
	}
	if in.Exact {
		flags |= flagExact
	}
	e.put(flags)

	if flags&flagInt != 0 {
		e.put(in.Int)
	}
	if flags&flagFloat != 0 {
		e.put(math.Float64bits(in.Float))
	}
	if flags&flagHash != 0 {
		e.put(uint64(in.Hash))
	}
	if flags&flagEnum != 0 {
		e.put(uint64(in.Enum))
	}
	if flags&flagCheck != 0 {
		e.put(uint8(in.Check.Kind))
		e.put(uint64(in.Check.Hash))
		e.int(in.Check.Index)
	}
}

// WriteUnit writes everything the VM needs to run u. Imports and declared
// names are compile time only and are not written.
func WriteUnit(w io.Writer, u *Unit) error {
	e := &encoder{w: w}

	// magic
	if _, err := w.Write(magicV1[:]); err != nil {
		return err
	}
	bid, _ := u.BuildID.MarshalBinary()
	_, e.err = w.Write(bid)

	// static pools
	e.len(len(u.Strings))
	for _, s := range u.Strings {
		e.str(s)
	}
	e.len(len(u.Bytes))
	for _, b := range u.Bytes {
		e.bytes(b)
	}
	e.len(len(u.ObjectKeys))
	for _, keys := range u.ObjectKeys {
		e.len(len(keys))
		for _, k := range keys {
			e.str(k)
		}
	}

	// code
	e.len(len(u.Instructions))
	for i, in := range u.Instructions {
		e.instruction(in)
		var span token.Span
		if i < len(u.Spans) {
			span = u.Spans[i]
		}
		e.int(span.Start)
		e.int(span.End)
	}

	// functions, in registration order so that reading back is stable
	e.len(len(u.fnOrder))
	for _, h := range u.fnOrder {
		fn := u.Functions[h]
		e.put(uint64(h))
		e.item(fn.Item)
		e.put(uint64(fn.Hash))
		e.int(fn.Offset)
		e.int(fn.Len)
		e.int(fn.Args)
		e.put(uint8(fn.Call))
		e.bool(fn.Closure)
		e.bool(fn.Instance)
		e.put(uint64(fn.InstanceType))
		e.str(fn.Name)
	}

	// types
	types := make([]*UnitType, 0, len(u.Types))
	for _, t := range u.Types {
		types = append(types, t)
	}
	sortTypes(types)

	e.len(len(types))
	for _, t := range types {
		e.put(uint8(t.Kind))
		e.item(t.Item)
		e.put(uint64(t.Hash))
		e.put(uint64(t.EnumHash))
		e.int(t.Args)
		e.bool(t.Fields != nil)
		e.len(len(t.Fields))
		for _, f := range t.Fields {
			e.str(f)
		}
	}

	return e.err
}

func sortTypes(types []*UnitType) {
	sort.Slice(types, func(i, j int) bool { return types[i].Hash < types[j].Hash })
}

type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) get(v interface{}) {
	if d.err != nil {
		return
	}
	d.err = binary.Read(d.r, binary.LittleEndian, v)
}

func (d *decoder) int() int {
	var v int32
	d.get(&v)
	return int(v)
}

// maxLen bounds lengths read from untrusted input before allocating.
const maxLen = 1 << 26

func (d *decoder) len() int {
	var v uint32
	d.get(&v)
	if d.err == nil && v > maxLen {
		d.err = errors.New("length %d out of range", v)
	}
	if d.err != nil {
		return 0
	}
	return int(v)
}

func (d *decoder) bytes() []byte {
	n := d.len()
	if d.err != nil {
		return nil
	}
	b := make([]byte, n)
	_, d.err = io.ReadFull(d.r, b)
	return b
}

func (d *decoder) str() string {
	return string(d.bytes())
}

func (d *decoder) u8() uint8 {
	var v uint8
	d.get(&v)
	return v
}

func (d *decoder) u64() uint64 {
	var v uint64
	d.get(&v)
	return v
}

func (d *decoder) bool() bool {
	return d.u8() != 0
}

func (d *decoder) item() item.Item {
	n := d.len()
	if n == 0 || d.err != nil {
		return nil
	}
	it := make(item.Item, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		kind := item.Kind(d.u8())
		switch kind {
		case item.KindString:
			it = append(it, item.Str(d.str()))
		default:
			it = append(it, item.Component{Kind: kind, ID: d.int()})
		}
	}
	return it
}

func (d *decoder) instruction() Instruction {
	in := Instruction{Op: OpCode(d.u8())}
	in.A = d.int()
	in.B = d.int()

	flags := d.u8()
	if flags&flagInt != 0 {
		var v int64
		d.get(&v)
		in.Int = v
	}
	if flags&flagFloat != 0 {
		in.Float = math.Float64frombits(d.u64())
	}
	if flags&flagHash != 0 {
		in.Hash = hash.Hash(d.u64())
	}
	if flags&flagEnum != 0 {
		in.Enum = hash.Hash(d.u64())
	}
	if flags&flagCheck != 0 {
		in.Check.Kind = TypeCheckKind(d.u8())
		in.Check.Hash = hash.Hash(d.u64())
		in.Check.Index = d.int()
	}
	in.Exact = flags&flagExact != 0
	return in
}

func ReadUnit(r io.Reader) (*Unit, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if hdr != magicV1 {
		return nil, errors.Wrap(ErrBadMagic, "%q", string(hdr[:]))
	}

	u := NewUnit()
	d := &decoder{r: r}

	var bid [16]byte
	if _, err := io.ReadFull(r, bid[:]); err != nil {
		return nil, errors.Wrap(err, "read build id")
	}
	u.BuildID = ulid.ULID(bid)

	for i, n := 0, d.len(); i < n && d.err == nil; i++ {
		u.NewStaticString(d.str())
	}
	for i, n := 0, d.len(); i < n && d.err == nil; i++ {
		u.NewStaticBytes(d.bytes())
	}
	for i, n := 0, d.len(); i < n && d.err == nil; i++ {
		keys := make([]string, d.len())
		for j := range keys {
			keys[j] = d.str()
		}
		u.NewStaticObjectKeys(keys)
	}

	n := d.len()
	u.Instructions = make([]Instruction, 0, n)
	u.Spans = make([]token.Span, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		u.Instructions = append(u.Instructions, d.instruction())
		u.Spans = append(u.Spans, token.Span{Start: d.int(), End: d.int()})
	}

	byItem := make(map[string]*UnitFn)
	for i, n := 0, d.len(); i < n && d.err == nil; i++ {
		h := hash.Hash(d.u64())
		fn := &UnitFn{Item: d.item()}
		fn.Hash = hash.Hash(d.u64())
		fn.Offset = d.int()
		fn.Len = d.int()
		fn.Args = d.int()
		fn.Call = CallKind(d.u8())
		fn.Closure = d.bool()
		fn.Instance = d.bool()
		fn.InstanceType = hash.Hash(d.u64())
		fn.Name = d.str()

		// Instance functions are written once per hash but share one entry.
		key := fn.Item.Key()
		if old, ok := byItem[key]; ok && old.Offset == fn.Offset {
			fn = old
		} else {
			byItem[key] = fn
		}

		u.Functions[h] = fn
		u.fnOrder = append(u.fnOrder, h)
	}

	for i, n := 0, d.len(); i < n && d.err == nil; i++ {
		t := &UnitType{Kind: MetaKind(d.u8())}
		t.Item = d.item()
		t.Hash = hash.Hash(d.u64())
		t.EnumHash = hash.Hash(d.u64())
		t.Args = d.int()
		hasFields := d.bool()
		fields := make([]string, d.len())
		for j := range fields {
			fields[j] = d.str()
		}
		if hasFields {
			t.Fields = fields
		}
		u.Types[t.Hash] = t
	}

	if d.err != nil {
		return nil, errors.Wrap(d.err, "read unit")
	}

	for _, fn := range u.Functions {
		if fn.Offset < 0 || fn.Len < 0 || fn.Offset+fn.Len > len(u.Instructions) {
			return nil, errors.New("function %v out of range", fn.Item)
		}
	}

	return u, nil
}
