package value

import (
	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/item"
)

// Paths of the built in types. The host context registers them so that
// scripts can name them in `is` expressions.
var (
	UnitItem     = item.Parse("std::unit")
	BoolItem     = item.Parse("std::bool")
	ByteItem     = item.Parse("std::byte")
	CharItem     = item.Parse("std::char")
	IntegerItem  = item.Parse("std::int")
	FloatItem    = item.Parse("std::float")
	StringItem   = item.Parse("std::string::String")
	BytesItem    = item.Parse("std::bytes::Bytes")
	VecItem      = item.Parse("std::vec::Vec")
	TupleItem    = item.Parse("std::tuple::Tuple")
	ObjectItem   = item.Parse("std::object::Object")
	OptionItem   = item.Parse("std::option::Option")
	ResultItem   = item.Parse("std::result::Result")
	FunctionItem = item.Parse("std::ops::Function")
	TypeItem     = item.Parse("std::any::Type")
	FutureItem   = item.Parse("std::future::Future")
)

var (
	UnitType     = hash.TypeHash(UnitItem)
	BoolType     = hash.TypeHash(BoolItem)
	ByteType     = hash.TypeHash(ByteItem)
	CharType     = hash.TypeHash(CharItem)
	IntegerType  = hash.TypeHash(IntegerItem)
	FloatType    = hash.TypeHash(FloatItem)
	StringType   = hash.TypeHash(StringItem)
	BytesType    = hash.TypeHash(BytesItem)
	VecType      = hash.TypeHash(VecItem)
	TupleType    = hash.TypeHash(TupleItem)
	ObjectType   = hash.TypeHash(ObjectItem)
	OptionType   = hash.TypeHash(OptionItem)
	ResultType   = hash.TypeHash(ResultItem)
	FunctionType = hash.TypeHash(FunctionItem)
	TypeType     = hash.TypeHash(TypeItem)
	FutureType   = hash.TypeHash(FutureItem)
)

var kindTypes = [...]hash.Hash{
	KindUnit:     UnitType,
	KindBool:     BoolType,
	KindByte:     ByteType,
	KindChar:     CharType,
	KindInteger:  IntegerType,
	KindFloat:    FloatType,
	KindString:   StringType,
	KindBytes:    BytesType,
	KindVec:      VecType,
	KindTuple:    TupleType,
	KindObject:   ObjectType,
	KindOption:   OptionType,
	KindResult:   ResultType,
	KindFunction: FunctionType,
	KindType:     TypeType,
	KindFuture:   FutureType,
}

// TypeOf returns the hash instance functions of v are registered under.
func TypeOf(v Value) hash.Hash {
	switch v.Kind {
	case KindTypedTuple, KindTypedObject, KindVariantTuple, KindVariantObject:
		return v.Type
	case KindExternal:
		return v.External.TypeHash()
	}
	if int(v.Kind) < len(kindTypes) {
		return kindTypes[v.Kind]
	}
	return 0
}
