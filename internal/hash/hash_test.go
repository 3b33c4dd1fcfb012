package hash

import (
	"testing"

	"github.com/therealbnut/rune/internal/item"
)

func TestStable(t *testing.T) {
	if Of("next") != Next || Of("into_iter") != IntoIter {
		t.Fatalf("protocol hashes are not stable")
	}
	if TypeHash(item.Parse("std::io::print")) != TypeHash(item.Of("std", "io", "print")) {
		t.Fatalf("type hash depends on construction")
	}
}

func TestDomainSeparation(t *testing.T) {
	if Of("print") == TypeHash(item.Of("print")) {
		t.Fatalf("name and item hashes collide")
	}
	if TypeHash(item.Of("a", "b")) == TypeHash(item.Of("ab")) {
		t.Fatalf("component boundaries are not hashed")
	}
	if TypeHash(item.Item{item.Block(0)}) == TypeHash(item.Item{item.Closure(0)}) {
		t.Fatalf("blocks and closures collide")
	}
	if TypeHash(item.Item{item.Block(0)}) == TypeHash(item.Of("$block0")) {
		t.Fatalf("blocks and names collide")
	}
}

func TestInstanceFunction(t *testing.T) {
	a := InstanceFunction(Of("T"), Of("f"))
	b := InstanceFunction(Of("f"), Of("T"))
	if a == b {
		t.Fatalf("instance hashes are symmetric")
	}
	if Params(a) == a || Params(a, Of("x")) == Params(a, Of("y")) {
		t.Fatalf("params are not hashed")
	}
}

func TestNormalization(t *testing.T) {
	// precomposed and decomposed e-acute
	if Of("caf\u00e9") != Of("cafe\u0301") {
		t.Fatalf("names are not normalized")
	}
}
