package serialization

import (
	"reflect"

	"github.com/samber/lo"

	"github.com/lk2023060901/graphdoc-go/pkg/emitter"
)

// TypeConverter 接管特定类型的输出，直接向 emitter 写入事件。
// 写入的事件必须构成恰好一个完整节点。
type TypeConverter interface {
	Accepts(t reflect.Type) bool
	WriteYAML(e emitter.Emitter, value any, t reflect.Type) error
}

// ConverterFunc 以两个函数组合出一个 TypeConverter。
type ConverterFunc struct {
	AcceptsFunc func(t reflect.Type) bool
	WriteFunc   func(e emitter.Emitter, value any, t reflect.Type) error
}

func (c ConverterFunc) Accepts(t reflect.Type) bool {
	return c.AcceptsFunc != nil && c.AcceptsFunc(t)
}

func (c ConverterFunc) WriteYAML(e emitter.Emitter, value any, t reflect.Type) error {
	return c.WriteFunc(e, value, t)
}

// ForType 返回只接受 T 与 *T 的转换器，write 收到的值已经解引用。
// T 本身是指针类型时只接受 T。
func ForType[T any](write func(e emitter.Emitter, value T) error) TypeConverter {
	target := reflect.TypeOf((*T)(nil)).Elem()
	return ConverterFunc{
		AcceptsFunc: func(t reflect.Type) bool {
			if t == target {
				return true
			}
			return target.Kind() != reflect.Pointer && t.Kind() == reflect.Pointer && t.Elem() == target
		},
		WriteFunc: func(e emitter.Emitter, value any, _ reflect.Type) error {
			switch v := value.(type) {
			case T:
				return write(e, v)
			case *T:
				return write(e, *v)
			}
			var zero T
			return write(e, zero)
		},
	}
}

type converterList []TypeConverter

// find 返回第一个接受 t 的转换器，按注册顺序匹配。
func (l converterList) find(t reflect.Type) TypeConverter {
	if t == nil {
		return nil
	}
	c, _ := lo.Find(l, func(c TypeConverter) bool {
		return c.Accepts(t)
	})
	return c
}

func (l converterList) accepts(t reflect.Type) bool {
	return l.find(t) != nil
}
