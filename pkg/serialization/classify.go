package serialization

import (
	"math/big"
	"reflect"
	"time"
)

// Classification 是类型分类器对一个值的判定结果。
type Classification int

const (
	Null Classification = iota
	PrimitiveScalar
	TextScalar
	TemporalScalar
	DictionaryLike
	SequenceLike
	StructuredObject
	// Unsupported 表示没有定义标量表示的类别，例如 func、chan。
	Unsupported
)

var classificationNames = [...]string{
	Null:             "null",
	PrimitiveScalar:  "primitive",
	TextScalar:       "text",
	TemporalScalar:   "temporal",
	DictionaryLike:   "dictionary",
	SequenceLike:     "sequence",
	StructuredObject: "object",
	Unsupported:      "unsupported",
}

func (c Classification) String() string {
	if c < 0 || int(c) >= len(classificationNames) {
		return "unknown"
	}
	return classificationNames[c]
}

// IsScalar 判断该类别是否以单个标量输出。
func (c Classification) IsScalar() bool {
	return c == Null || c == PrimitiveScalar || c == TextScalar || c == TemporalScalar
}

// Dictionary 由自定义的键值容器实现，键和值的声明类型视为 any。
type Dictionary interface {
	Keys() []any
	Get(key any) any
}

// TypedDictionary 在 Dictionary 的基础上报告键和值的声明类型。
type TypedDictionary interface {
	Dictionary
	KeyType() reflect.Type
	ValueType() reflect.Type
}

// Sequence 由自定义的有序容器实现，元素的声明类型视为 any。
type Sequence interface {
	Items() []any
}

// TypedSequence 在 Sequence 的基础上报告元素的声明类型。
type TypedSequence interface {
	Sequence
	ElementType() reflect.Type
}

var (
	anyType        = reflect.TypeOf((*any)(nil)).Elem()
	stringType     = reflect.TypeOf("")
	timeType       = reflect.TypeOf(time.Time{})
	durationType   = reflect.TypeOf(time.Duration(0))
	bigIntType     = reflect.TypeOf(big.Int{})
	bigFloatType   = reflect.TypeOf(big.Float{})
	bigRatType     = reflect.TypeOf(big.Rat{})
	dictionaryType = reflect.TypeOf((*Dictionary)(nil)).Elem()
	sequenceType   = reflect.TypeOf((*Sequence)(nil)).Elem()
)

// Classify 判定 value 的类别。
// interface 与指针会被逐层展开，nil（包括 nil 的 func 与 chan）判定为 Null；
// 自定义容器接口在每一层指针上都会检查，可寻址的值还会检查其指针类型，
// 因此指针接收者实现的接口同样生效。
func Classify(value reflect.Value) Classification {
	_, c := resolve(value)
	return c
}

// resolve 返回做出判定时所在的那一层值以及判定结果。
func resolve(v reflect.Value) (reflect.Value, Classification) {
	for {
		if !v.IsValid() {
			return v, Null
		}
		switch v.Kind() {
		case reflect.Interface:
			if v.IsNil() {
				return v, Null
			}
			v = v.Elem()
			continue
		case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
			if v.IsNil() {
				return v, Null
			}
		}

		t := v.Type()
		if c, ok := specialType(t); ok {
			return v, c
		}
		if v.CanInterface() {
			if t.Implements(dictionaryType) {
				return v, DictionaryLike
			}
			if t.Implements(sequenceType) {
				return v, SequenceLike
			}
		}
		if v.Kind() != reflect.Pointer && v.CanAddr() && v.Addr().CanInterface() {
			// 可寻址的值（如结构体成员）同样可以使用指针接收者实现的容器接口。
			pt := reflect.PointerTo(t)
			if pt.Implements(dictionaryType) {
				return v.Addr(), DictionaryLike
			}
			if pt.Implements(sequenceType) {
				return v.Addr(), SequenceLike
			}
		}
		if v.Kind() == reflect.Pointer {
			v = v.Elem()
			continue
		}
		return v, kindClassification(v.Kind())
	}
}

func specialType(t reflect.Type) (Classification, bool) {
	switch t {
	case timeType, durationType:
		return TemporalScalar, true
	case bigIntType, bigFloatType, bigRatType:
		return PrimitiveScalar, true
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return TextScalar, true
	}
	return 0, false
}

func kindClassification(k reflect.Kind) Classification {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return PrimitiveScalar
	case reflect.String:
		return TextScalar
	case reflect.Map:
		return DictionaryLike
	case reflect.Slice, reflect.Array:
		return SequenceLike
	case reflect.Struct:
		return StructuredObject
	default:
		return Unsupported
	}
}
