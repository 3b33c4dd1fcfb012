package vm

import (
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/value"
)

// matchesCheck tests the discriminant of v.
func matchesCheck(v value.Value, check ir.TypeCheck) bool {
	switch check.Kind {
	case ir.CheckTuple:
		return v.Kind == value.KindTuple || v.Kind == value.KindUnit
	case ir.CheckVec:
		return v.Kind == value.KindVec
	case ir.CheckObject:
		return v.Kind == value.KindObject
	case ir.CheckType:
		return (v.Kind == value.KindTypedTuple || v.Kind == value.KindTypedObject) && v.Type == check.Hash
	case ir.CheckVariant:
		return (v.Kind == value.KindVariantTuple || v.Kind == value.KindVariantObject) && v.Variant == check.Hash
	case ir.CheckOption:
		return v.Kind == value.KindOption && v.Index == check.Index
	case ir.CheckResult:
		return v.Kind == value.KindResult && v.Index == check.Index
	}
	return false
}

// matchSequence tests that v passes check and has n elements, or at least
// n when not exact.
func matchSequence(v value.Value, check ir.TypeCheck, n int, exact bool) bool {
	if !matchesCheck(v, check) {
		return false
	}
	vals, ok := v.Elements()
	if !ok {
		return false
	}
	if exact {
		return len(vals) == n
	}
	return len(vals) >= n
}

// matchObject tests that v passes check and has every key, and no others
// when exact.
func matchObject(v value.Value, check ir.TypeCheck, keys []string, exact bool) bool {
	if !matchesCheck(v, check) {
		return false
	}
	fields, ok := v.Fields()
	if !ok {
		return false
	}
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			return false
		}
	}
	return !exact || len(fields) == len(keys)
}
