package item

import "testing"

func TestParseAndString(t *testing.T) {
	it := Parse("std::io::print")
	if len(it) != 3 || it.String() != "std::io::print" {
		t.Fatalf("unexpected item %v", it)
	}
	if Parse("") != nil || Item(nil).String() != "{root}" {
		t.Fatalf("root item is wrong")
	}

	nested := Of("main").Extended(Block(0), Closure(2))
	if nested.String() != "main::$block0::$closure2" {
		t.Fatalf("unexpected nested item %v", nested)
	}
}

func TestJoinDoesNotAlias(t *testing.T) {
	base := make(Item, 0, 8)
	base = append(base, Str("a"))

	x := base.Join(Of("x"))
	y := base.Join(Of("y"))
	if x.String() != "a::x" || y.String() != "a::y" {
		t.Fatalf("joins share storage: %v %v", x, y)
	}

	e := base.Extended(Block(1))
	if e.String() != "a::$block1" || len(base) != 1 {
		t.Fatalf("Extended modified base: %v %v", e, base)
	}
}

func TestPopAndLast(t *testing.T) {
	it := Of("a", "b")

	if c, ok := it.Last(); !ok || c.Name != "b" {
		t.Fatalf("Last: %v %v", c, ok)
	}
	if c, ok := it.Pop(); !ok || c.Name != "b" || it.String() != "a" {
		t.Fatalf("Pop: %v %v %v", c, ok, it)
	}
	it.Pop()
	if _, ok := it.Pop(); ok {
		t.Fatalf("Pop on the root item")
	}
	if _, ok := it.Last(); ok {
		t.Fatalf("Last on the root item")
	}
}

func TestPrefixAndLocal(t *testing.T) {
	it := Parse("std::io::print")

	if !it.HasPrefix(Parse("std::io")) || !it.HasPrefix(nil) || it.HasPrefix(Parse("std::iox")) {
		t.Fatalf("HasPrefix is wrong")
	}
	if !it.Equal(Parse("std::io::print")) || it.Equal(Parse("std::io")) {
		t.Fatalf("Equal is wrong")
	}

	if name, ok := Of("x").AsLocal(); !ok || name != "x" {
		t.Fatalf("AsLocal: %q %v", name, ok)
	}
	if _, ok := it.AsLocal(); ok {
		t.Fatalf("qualified item treated as local")
	}
	if _, ok := (Item{Block(0)}).AsLocal(); ok {
		t.Fatalf("block treated as local")
	}
}

func TestKeyDistinguishesComponents(t *testing.T) {
	if Of("a", "b").Key() == Of("a::b").Key() {
		t.Fatalf("keys collide")
	}
	if Of("a").Key() != Parse("a").Key() {
		t.Fatalf("equal items have different keys")
	}
}
