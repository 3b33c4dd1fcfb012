package ir_test

import (
	"bytes"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/token"
)

var span = token.Span{Start: 0, End: 1}

func TestLabelsResolveToAbsoluteAddresses(t *testing.T) {
	u := ir.NewUnit()

	// pad the unit so that resolution has to add the function offset
	pad := ir.NewAssembly(span)
	pad.Emit(ir.OpReturnUnit, 0, 0, span)
	if err := u.NewFunction(item.Of("pad"), 0, pad, ir.CallImmediate); err != nil {
		t.Fatalf("NewFunction: %v", err)
	}

	asm := ir.NewAssembly(span)
	end := asm.NewLabel("end")
	asm.Push(ir.Instruction{Op: ir.OpBool, A: 1}, span)
	asm.JumpIfNot(end, span)
	asm.Emit(ir.OpUnit, 0, 0, span)
	asm.Emit(ir.OpPop, 0, 0, span)
	if err := asm.Label(end); err != nil {
		t.Fatalf("Label: %v", err)
	}
	asm.Emit(ir.OpReturnUnit, 0, 0, span)

	if err := u.NewFunction(item.Of("main"), 0, asm, ir.CallImmediate); err != nil {
		t.Fatalf("NewFunction: %v", err)
	}

	fn := u.Functions[hash.TypeHash(item.Of("main"))]
	if fn == nil || fn.Offset != 1 || fn.Len != 5 {
		t.Fatalf("unexpected function: %+v", fn)
	}
	if got := u.Instructions[fn.Offset+1].A; got != 5 {
		t.Fatalf("expected jump to 5, got %d", got)
	}
	if err := u.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestLabelErrors(t *testing.T) {
	asm := ir.NewAssembly(span)
	l := asm.NewLabel("twice")
	if err := asm.Label(l); err != nil {
		t.Fatalf("first Label: %v", err)
	}
	if err := asm.Label(l); !errors.Is(err, ir.ErrLabelPinned) {
		t.Fatalf("expected ErrLabelPinned, got %v", err)
	}

	asm = ir.NewAssembly(span)
	asm.Jump(asm.NewLabel("never"), span)
	err := ir.NewUnit().NewFunction(item.Of("f"), 0, asm, ir.CallImmediate)
	if !errors.Is(err, ir.ErrMissingLabel) {
		t.Fatalf("expected ErrMissingLabel, got %v", err)
	}
}

func TestStaticPoolsDeduplicate(t *testing.T) {
	u := ir.NewUnit()

	a := u.NewStaticString("hello")
	b := u.NewStaticString("world")
	if u.NewStaticString("hello") != a || a == b {
		t.Fatalf("strings not deduplicated: %d %d", a, b)
	}
	if u.NewStaticBytes([]byte("x")) != u.NewStaticBytes([]byte("x")) {
		t.Fatalf("bytes not deduplicated")
	}
	k1 := u.NewStaticObjectKeys([]string{"a", "b"})
	k2 := u.NewStaticObjectKeys([]string{"b", "a"})
	if k1 == k2 || u.NewStaticObjectKeys([]string{"a", "b"}) != k1 {
		t.Fatalf("object keys: %d %d", k1, k2)
	}
}

func TestFunctionConflict(t *testing.T) {
	u := ir.NewUnit()
	for i := 0; i < 2; i++ {
		asm := ir.NewAssembly(span)
		asm.Emit(ir.OpReturnUnit, 0, 0, span)
		err := u.NewFunction(item.Of("f"), 0, asm, ir.CallImmediate)
		if i == 1 && !errors.Is(err, ir.ErrFunctionConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	}
}

func TestNamesAndImports(t *testing.T) {
	u := ir.NewUnitWithPrelude()
	u.InsertName(item.Of("foo", "bar"))

	if !u.ContainsPrefix(item.Of("foo")) || u.ContainsName(item.Of("foo")) {
		t.Fatalf("prefix handling is wrong")
	}
	if !u.ContainsName(item.Of("foo", "bar")) {
		t.Fatalf("expected foo::bar to be declared")
	}
	if comps := u.IterComponents(item.Of("foo")); len(comps) != 1 || comps[0].Name != "bar" {
		t.Fatalf("unexpected components: %v", comps)
	}

	entry, ok := u.LookupImport(nil, "Some")
	if !ok || entry.Item.String() != "std::option::Option::Some" || entry.Span != nil {
		t.Fatalf("unexpected prelude entry: %+v", entry)
	}

	if err := u.NewImport(item.Of("m"), "x", item.Of("a", "x"), &span); err != nil {
		t.Fatalf("NewImport: %v", err)
	}
	if err := u.NewImport(item.Of("m"), "x", item.Of("b", "x"), &span); !errors.Is(err, ir.ErrImportConflict) {
		t.Fatalf("expected import conflict, got %v", err)
	}
}

func TestVerifyRejectsImbalance(t *testing.T) {
	u := ir.NewUnit()

	asm := ir.NewAssembly(span)
	then := asm.NewLabel("then")
	asm.Push(ir.Instruction{Op: ir.OpBool, A: 1}, span)
	asm.JumpIf(then, span)
	asm.Emit(ir.OpUnit, 0, 0, span)
	_ = asm.Label(then)
	asm.Emit(ir.OpReturnUnit, 0, 0, span)

	if err := u.NewFunction(item.Of("f"), 0, asm, ir.CallImmediate); err != nil {
		t.Fatalf("NewFunction: %v", err)
	}
	if err := u.Verify(); !errors.Is(err, ir.ErrStackImbalance) {
		t.Fatalf("expected stack imbalance, got %v", err)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	u := ir.NewUnit()
	u.NewStaticString("hi")
	u.NewStaticBytes([]byte{1, 2})
	keys := u.NewStaticObjectKeys([]string{"a"})

	asm := ir.NewAssembly(span)
	asm.Push(ir.Instruction{Op: ir.OpFloat, Float: 1.5}, span)
	asm.Push(ir.Instruction{Op: ir.OpTypedObject, Hash: hash.Of("T"), A: keys}, span)
	asm.Push(ir.Instruction{Op: ir.OpMatchSequence, Check: ir.TypeCheck{Kind: ir.CheckVariant, Hash: 7}, A: 2, Exact: true}, span)
	asm.Emit(ir.OpReturn, 0, 0, span)
	if err := u.NewInstanceFunction(item.Of("T", "f"), hash.Of("T"), "f", 1, asm, ir.CallAsync); err != nil {
		t.Fatalf("NewInstanceFunction: %v", err)
	}
	if err := u.NewType(&ir.Meta{Kind: ir.MetaStruct, Item: item.Of("T"), Hash: hash.Of("T"), Fields: ir.FieldSet("a")}); err != nil {
		t.Fatalf("NewType: %v", err)
	}

	var buf bytes.Buffer
	if err := ir.WriteUnit(&buf, u); err != nil {
		t.Fatalf("WriteUnit: %v", err)
	}
	got, err := ir.ReadUnit(&buf)
	if err != nil {
		t.Fatalf("ReadUnit: %v", err)
	}

	if got.BuildID != u.BuildID {
		t.Errorf("build id: %v != %v", got.BuildID, u.BuildID)
	}
	if len(got.Instructions) != len(u.Instructions) {
		t.Fatalf("instructions: %d != %d", len(got.Instructions), len(u.Instructions))
	}
	for i := range u.Instructions {
		if got.Instructions[i] != u.Instructions[i] {
			t.Errorf("instruction %d: %v != %v", i, got.Instructions[i], u.Instructions[i])
		}
	}

	inst := got.Functions[hash.InstanceFunction(hash.Of("T"), hash.Of("f"))]
	byPath := got.Functions[hash.TypeHash(item.Of("T", "f"))]
	if inst == nil || inst != byPath || inst.Call != ir.CallAsync || !inst.Instance {
		t.Fatalf("unexpected functions: %+v %+v", inst, byPath)
	}
	if ty := got.Types[hash.Of("T")]; ty == nil || len(ty.Fields) != 1 || ty.Fields[0] != "a" {
		t.Fatalf("unexpected type: %+v", ty)
	}
	if got.Strings[0] != "hi" || got.ObjectKeys[keys][0] != "a" {
		t.Fatalf("static pools not restored")
	}
}

func TestReadUnitBadMagic(t *testing.T) {
	_, err := ir.ReadUnit(bytes.NewReader([]byte("NOPE")))
	if !errors.Is(err, ir.ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}
