// Package collections installs `std::collections`.
package collections

import (
	"strings"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/runtime/builtins/iter"
	"github.com/therealbnut/rune/internal/value"
)

var VecDequeType = hash.TypeHash(item.Parse("std::collections::VecDeque"))

// VecDeque is a double-ended queue backed by a ring buffer.
type VecDeque struct {
	buf  []value.Value
	head int
	n    int
}

func NewVecDeque(capacity int) *VecDeque {
	return &VecDeque{buf: make([]value.Value, capacity)}
}

func (d *VecDeque) TypeHash() hash.Hash { return VecDequeType }

func (d *VecDeque) Len() int { return d.n }

func (d *VecDeque) slot(i int) int {
	return (d.head + i) % len(d.buf)
}

// Get returns the element at logical index i.
func (d *VecDeque) Get(i int) (value.Value, bool) {
	if i < 0 || i >= d.n {
		return value.Value{}, false
	}
	return d.buf[d.slot(i)], true
}

func (d *VecDeque) set(i int, v value.Value) {
	d.buf[d.slot(i)] = v
}

// Reserve makes room for at least extra more elements.
func (d *VecDeque) Reserve(extra int) {
	need := d.n + extra
	if need <= len(d.buf) {
		return
	}
	size := 2 * len(d.buf)
	if size < need {
		size = need
	}
	if size < 4 {
		size = 4
	}

	buf := make([]value.Value, size)
	for i := 0; i < d.n; i++ {
		buf[i] = d.buf[d.slot(i)]
	}
	d.buf = buf
	d.head = 0
}

func (d *VecDeque) PushBack(v value.Value) {
	d.Reserve(1)
	d.n++
	d.set(d.n-1, v)
}

func (d *VecDeque) PushFront(v value.Value) {
	d.Reserve(1)
	d.head = (d.head - 1 + len(d.buf)) % len(d.buf)
	d.n++
	d.set(0, v)
}

func (d *VecDeque) PopBack() (value.Value, bool) {
	if d.n == 0 {
		return value.Value{}, false
	}
	v := d.buf[d.slot(d.n-1)]
	d.buf[d.slot(d.n-1)] = value.Value{}
	d.n--
	return v, true
}

func (d *VecDeque) PopFront() (value.Value, bool) {
	if d.n == 0 {
		return value.Value{}, false
	}
	v := d.buf[d.head]
	d.buf[d.head] = value.Value{}
	d.head = (d.head + 1) % len(d.buf)
	d.n--
	return v, true
}

// Insert places v at logical index i, shifting later elements back.
func (d *VecDeque) Insert(i int, v value.Value) error {
	if i < 0 || i > d.n {
		return errors.New("index %d out of range [0:%d]", i, d.n)
	}
	d.PushBack(v)
	for j := d.n - 1; j > i; j-- {
		prev, _ := d.Get(j - 1)
		d.set(j, prev)
	}
	d.set(i, v)
	return nil
}

// Remove removes and returns the element at logical index i.
func (d *VecDeque) Remove(i int) (value.Value, bool) {
	v, ok := d.Get(i)
	if !ok {
		return value.Value{}, false
	}
	for j := i; j < d.n-1; j++ {
		next, _ := d.Get(j + 1)
		d.set(j, next)
	}
	d.PopBack()
	return v, true
}

// RotateLeft moves the first k elements to the back.
func (d *VecDeque) RotateLeft(k int) error {
	if k < 0 || k > d.n {
		return errors.New("rotation %d out of range [0:%d]", k, d.n)
	}
	for ; k > 0; k-- {
		v, _ := d.PopFront()
		d.PushBack(v)
	}
	return nil
}

// Values returns a copy of the elements front to back.
func (d *VecDeque) Values() []value.Value {
	out := make([]value.Value, d.n)
	for i := range out {
		out[i], _ = d.Get(i)
	}
	return out
}

func (d *VecDeque) String() string {
	var sb strings.Builder
	sb.WriteString("VecDeque[")
	for i, v := range d.Values() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.Debug())
	}
	sb.WriteByte(']')
	return sb.String()
}

func init() {
	builtins.Register(builtins.NewModule("std::collections").
		Type("VecDeque").
		Function("VecDeque::new", 0, newDeque).
		Function("VecDeque::with_capacity", 1, withCapacity).
		Function("VecDeque::from", 1, from).
		InstanceFunction("VecDeque", "extend", 2, extend).
		InstanceFunction("VecDeque", "get", 2, get).
		InstanceFunction("VecDeque", "insert", 3, insert).
		InstanceFunction("VecDeque", "iter", 1, intoIter).
		InstanceFunction("VecDeque", "into_iter", 1, intoIter).
		InstanceFunction("VecDeque", "len", 1, length).
		InstanceFunction("VecDeque", "pop_back", 1, popBack).
		InstanceFunction("VecDeque", "pop_front", 1, popFront).
		InstanceFunction("VecDeque", "push_back", 2, pushBack).
		InstanceFunction("VecDeque", "push_front", 2, pushFront).
		InstanceFunction("VecDeque", "remove", 2, remove).
		InstanceFunction("VecDeque", "reserve", 2, reserve).
		InstanceFunction("VecDeque", "rotate_left", 2, rotateLeft).
		InstanceFunction("VecDeque", "rotate_right", 2, rotateRight).
		InstanceFunction("VecDeque", "index_get", 2, indexGet).
		InstanceFunction("VecDeque", "index_set", 3, indexSet))
}

func receiver(name string, args []value.Value) (*VecDeque, error) {
	return builtins.External[*VecDeque]("VecDeque."+name, args, 0)
}

func newDeque(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.FromExternal(NewVecDeque(0)), nil
}

func withCapacity(env builtins.Env, args []value.Value) (value.Value, error) {
	n, err := builtins.Index("VecDeque::with_capacity", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromExternal(NewVecDeque(n)), nil
}

func from(env builtins.Env, args []value.Value) (value.Value, error) {
	d := NewVecDeque(0)
	if err := extendFrom(d, "VecDeque::from", args[0]); err != nil {
		return value.Value{}, err
	}
	return value.FromExternal(d), nil
}

func extendFrom(d *VecDeque, name string, src value.Value) error {
	it, err := iter.IntoIter(name, src)
	if err != nil {
		return err
	}
	next := it.External.(*iter.Iterator)
	for {
		v, ok := next.Next()
		if !ok {
			return nil
		}
		d.PushBack(v)
	}
}

func extend(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("extend", args)
	if err != nil {
		return value.Value{}, err
	}
	if err := extendFrom(d, "VecDeque.extend", args[1]); err != nil {
		return value.Value{}, err
	}
	return value.Unit(), nil
}

func insert(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("insert", args)
	if err != nil {
		return value.Value{}, err
	}
	i, err := builtins.Index("VecDeque.insert", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if err := d.Insert(i, args[2]); err != nil {
		return value.Value{}, errors.Wrap(err, "VecDeque.insert")
	}
	return value.Unit(), nil
}

func intoIter(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("iter", args)
	if err != nil {
		return value.Value{}, err
	}
	return iter.Slice("vec_deque", d.Values()), nil
}

func length(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("len", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Integer(int64(d.Len())), nil
}

func option(v value.Value, ok bool) value.Value {
	if !ok {
		return value.None()
	}
	return value.Some(v)
}

func get(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("get", args)
	if err != nil {
		return value.Value{}, err
	}
	i, err := builtins.Index("VecDeque.get", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return option(d.Get(i)), nil
}

func popBack(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("pop_back", args)
	if err != nil {
		return value.Value{}, err
	}
	return option(d.PopBack()), nil
}

func popFront(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("pop_front", args)
	if err != nil {
		return value.Value{}, err
	}
	return option(d.PopFront()), nil
}

func pushBack(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("push_back", args)
	if err != nil {
		return value.Value{}, err
	}
	d.PushBack(args[1])
	return value.Unit(), nil
}

func pushFront(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("push_front", args)
	if err != nil {
		return value.Value{}, err
	}
	d.PushFront(args[1])
	return value.Unit(), nil
}

func remove(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("remove", args)
	if err != nil {
		return value.Value{}, err
	}
	i, err := builtins.Index("VecDeque.remove", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return option(d.Remove(i)), nil
}

func reserve(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("reserve", args)
	if err != nil {
		return value.Value{}, err
	}
	n, err := builtins.Index("VecDeque.reserve", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	d.Reserve(n)
	return value.Unit(), nil
}

func rotateLeft(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("rotate_left", args)
	if err != nil {
		return value.Value{}, err
	}
	k, err := builtins.Index("VecDeque.rotate_left", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if err := d.RotateLeft(k); err != nil {
		return value.Value{}, errors.Wrap(err, "VecDeque.rotate_left")
	}
	return value.Unit(), nil
}

// rotateRight rotates left, the same as rotate_left.
func rotateRight(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("rotate_right", args)
	if err != nil {
		return value.Value{}, err
	}
	k, err := builtins.Index("VecDeque.rotate_right", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if err := d.RotateLeft(k); err != nil {
		return value.Value{}, errors.Wrap(err, "VecDeque.rotate_right")
	}
	return value.Unit(), nil
}

// indexGet implements `d[i]`.
func indexGet(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("index_get", args)
	if err != nil {
		return value.Value{}, err
	}
	i, err := builtins.Index("VecDeque.index_get", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	v, ok := d.Get(i)
	if !ok {
		return value.Value{}, errors.New("VecDeque: index %d out of range [0:%d)", i, d.Len())
	}
	return v, nil
}

// indexSet implements `d[i] = v`.
func indexSet(env builtins.Env, args []value.Value) (value.Value, error) {
	d, err := receiver("index_set", args)
	if err != nil {
		return value.Value{}, err
	}
	i, err := builtins.Index("VecDeque.index_set", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if i >= d.Len() {
		return value.Value{}, errors.New("VecDeque: index %d out of range [0:%d)", i, d.Len())
	}
	d.set(i, args[2])
	return value.Unit(), nil
}
