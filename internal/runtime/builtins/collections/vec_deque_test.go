package collections

import (
	"testing"

	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

func ints(d *VecDeque) []int64 {
	var out []int64
	for _, v := range d.Values() {
		out = append(out, v.Int)
	}
	return out
}

func equalInts(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestVecDequeRing(t *testing.T) {
	d := NewVecDeque(0)
	for i := int64(1); i <= 3; i++ {
		d.PushBack(value.Integer(i))
	}
	d.PushFront(value.Integer(0))
	d.PushFront(value.Integer(-1))

	if got := ints(d); !equalInts(got, []int64{-1, 0, 1, 2, 3}) {
		t.Fatalf("unexpected contents: %v", got)
	}

	if v, ok := d.PopFront(); !ok || v.Int != -1 {
		t.Fatalf("PopFront: %v %v", v, ok)
	}
	if v, ok := d.PopBack(); !ok || v.Int != 3 {
		t.Fatalf("PopBack: %v %v", v, ok)
	}

	if err := d.Insert(1, value.Integer(9)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got := ints(d); !equalInts(got, []int64{0, 9, 1, 2}) {
		t.Fatalf("after insert: %v", got)
	}
	if v, ok := d.Remove(2); !ok || v.Int != 1 {
		t.Fatalf("Remove: %v %v", v, ok)
	}
	if got := ints(d); !equalInts(got, []int64{0, 9, 2}) {
		t.Fatalf("after remove: %v", got)
	}
	if err := d.Insert(5, value.Unit()); err == nil {
		t.Fatalf("expected out of range insert to fail")
	}
}

func TestRotateRightRotatesLeft(t *testing.T) {
	d := NewVecDeque(4)
	for i := int64(0); i < 4; i++ {
		d.PushBack(value.Integer(i))
	}

	fn := builtins.LookupInstance("std::collections", "VecDeque", "rotate_right")
	if fn == nil {
		t.Fatalf("rotate_right not registered")
	}
	if _, err := fn.Call(nil, []value.Value{value.FromExternal(d), value.Integer(1)}); err != nil {
		t.Fatalf("rotate_right: %v", err)
	}

	if got := ints(d); !equalInts(got, []int64{1, 2, 3, 0}) {
		t.Fatalf("unexpected rotation: %v", got)
	}
}

func TestIndexProtocol(t *testing.T) {
	d := NewVecDeque(0)
	d.PushBack(value.String("a"))

	set := builtins.LookupInstance("std::collections", "VecDeque", "index_set")
	get := builtins.LookupInstance("std::collections", "VecDeque", "index_get")

	if _, err := set.Call(nil, []value.Value{value.FromExternal(d), value.Integer(0), value.String("b")}); err != nil {
		t.Fatalf("index_set: %v", err)
	}
	v, err := get.Call(nil, []value.Value{value.FromExternal(d), value.Integer(0)})
	if err != nil || v.Str != "b" {
		t.Fatalf("index_get: %v %v", v, err)
	}
	if _, err := get.Call(nil, []value.Value{value.FromExternal(d), value.Integer(1)}); err == nil {
		t.Fatalf("expected out of range error")
	}
}
