package serialization

import (
	"encoding/base64"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/lk2023060901/graphdoc-go/pkg/emitter"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

// scalarForm 是标量渲染后的文本与核心标签。
type scalarForm struct {
	value string
	tag   string
	// special 标记 NaN 与 Inf，这类浮点数在 JSON 中没有对应的数字表示。
	special bool
}

func renderScalar(node GraphNode) (scalarForm, error) {
	v, c := resolve(node.Value)
	switch c {
	case Null:
		return scalarForm{value: "null", tag: emitter.NullTag}, nil
	case TemporalScalar:
		if v.Type() == durationType {
			return scalarForm{value: time.Duration(v.Int()).String(), tag: emitter.StrTag}, nil
		}
		t, ok := addressable(v).Interface().(*time.Time)
		if !ok {
			break
		}
		return scalarForm{value: t.Format(time.RFC3339Nano), tag: emitter.TimestampTag}, nil
	case TextScalar:
		if v.Kind() == reflect.String {
			return scalarForm{value: v.String(), tag: emitter.StrTag}, nil
		}
		return scalarForm{value: base64.StdEncoding.EncodeToString(v.Bytes()), tag: emitter.BinaryTag}, nil
	case PrimitiveScalar:
		return renderPrimitive(v)
	}
	return scalarForm{}, merr.WrapErrUnsupportedScalarKind(c, node.Type.String())
}

func renderPrimitive(v reflect.Value) (scalarForm, error) {
	switch v.Type() {
	case bigIntType:
		return scalarForm{value: addressable(v).Interface().(*big.Int).String(), tag: emitter.IntTag}, nil
	case bigFloatType:
		f := addressable(v).Interface().(*big.Float)
		if f.IsInf() {
			return infinity(f.Sign() < 0), nil
		}
		return scalarForm{value: floatText(f.Text('g', -1)), tag: emitter.FloatTag}, nil
	case bigRatType:
		r := addressable(v).Interface().(*big.Rat)
		if r.IsInt() {
			return scalarForm{value: r.Num().String(), tag: emitter.IntTag}, nil
		}
		return scalarForm{value: r.RatString(), tag: emitter.StrTag}, nil
	}

	switch v.Kind() {
	case reflect.Bool:
		return scalarForm{value: strconv.FormatBool(v.Bool()), tag: emitter.BoolTag}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalarForm{value: strconv.FormatInt(v.Int(), 10), tag: emitter.IntTag}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return scalarForm{value: strconv.FormatUint(v.Uint(), 10), tag: emitter.IntTag}, nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			return scalarForm{value: ".nan", tag: emitter.FloatTag, special: true}, nil
		case math.IsInf(f, 0):
			return infinity(f < 0), nil
		}
		return scalarForm{value: floatText(strconv.FormatFloat(f, 'g', -1, v.Type().Bits())), tag: emitter.FloatTag}, nil
	case reflect.Complex64, reflect.Complex128:
		return scalarForm{value: strconv.FormatComplex(v.Complex(), 'g', -1, v.Type().Bits()), tag: emitter.StrTag}, nil
	}
	return scalarForm{}, merr.WrapErrUnsupportedScalarKind(v.Kind(), v.Type().String())
}

func infinity(negative bool) scalarForm {
	if negative {
		return scalarForm{value: "-.inf", tag: emitter.FloatTag, special: true}
	}
	return scalarForm{value: ".inf", tag: emitter.FloatTag, special: true}
}

// floatText 保证整数值的浮点数仍然按浮点数解析。
func floatText(s string) string {
	if strings.ContainsAny(s, ".eEn") {
		return s
	}
	return s + ".0"
}

// addressable 返回指向 v 的指针，v 不可寻址时先复制一份。
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() && v.Addr().CanInterface() {
		return v.Addr()
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p
}
