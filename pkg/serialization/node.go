package serialization

import (
	"fmt"
	"reflect"

	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

// GraphNode 描述对象图中的一个位置：值本身、运行时类型与声明类型。
type GraphNode struct {
	// Value 已剥离 interface 包装，指针保留，用于对象身份判定。
	Value reflect.Value
	// Type 是运行时类型，值为 nil 时等于 StaticType。
	Type reflect.Type
	// StaticType 是所在位置的声明类型。
	StaticType reflect.Type
	// SerializeAs 非空时表示该属性被指定以某个类型输出。
	SerializeAs reflect.Type
	// Tag 由遍历策略填写，随 mapping-start 事件输出。
	Tag string
}

// NewGraphNode 在 static 声明类型的位置上构造节点。
func NewGraphNode(value reflect.Value, static reflect.Type) GraphNode {
	for value.IsValid() && value.Kind() == reflect.Interface && !value.IsNil() {
		value = value.Elem()
	}
	if static == nil {
		static = anyType
	}
	node := GraphNode{Value: value, Type: static, StaticType: static}
	if value.IsValid() && !(value.Kind() == reflect.Interface && value.IsNil()) {
		node.Type = value.Type()
	}
	return node
}

// IsNil 报告节点是否没有值。
func (n GraphNode) IsNil() bool {
	_, c := resolve(n.Value)
	return c == Null
}

// Interface 返回节点的值，无法取出时返回 nil。
func (n GraphNode) Interface() any {
	if !n.Value.IsValid() || !n.Value.CanInterface() {
		return nil
	}
	return n.Value.Interface()
}

func nameNode(name string) GraphNode {
	return GraphNode{Value: reflect.ValueOf(name), Type: stringType, StaticType: stringType}
}

// TagForType 返回往返模式下用于标识具名类型的标签，匿名类型返回空串。
func TagForType(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return ""
	}
	if t.PkgPath() == "" {
		return "!" + t.Name()
	}
	return "!" + t.PkgPath() + "." + t.Name()
}

// project 把 v 投影为 as 类型：接口直接沿用，可转换的类型做转换，
// 否则在 v 的嵌入字段中查找 as。
func project(v reflect.Value, as reflect.Type) (reflect.Value, error) {
	for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		return reflect.Value{}, nil
	}
	t := v.Type()
	switch {
	case t == as:
		return v, nil
	case as.Kind() == reflect.Interface && t.Implements(as):
		return v, nil
	case isInteger(t.Kind()) && as.Kind() == reflect.String:
		// 整数到字符串的转换会得到码点字符，不作为投影。
	case v.CanConvert(as):
		return v.Convert(as), nil
	}

	s := v
	for s.Kind() == reflect.Pointer {
		if s.IsNil() {
			return reflect.Value{}, nil
		}
		s = s.Elem()
	}
	if s.Kind() == reflect.Struct {
		for i := 0; i < s.NumField(); i++ {
			f := s.Type().Field(i)
			if !f.Anonymous {
				continue
			}
			if f.Type == as || (f.Type.Kind() == reflect.Pointer && f.Type.Elem() == as) {
				fv := s.Field(i)
				if f.Type.Kind() == reflect.Pointer && as.Kind() != reflect.Pointer {
					if fv.IsNil() {
						return reflect.Value{}, nil
					}
					fv = fv.Elem()
				}
				return fv, nil
			}
		}
	}
	return reflect.Value{}, merr.WrapErrInvalidConfiguration("serializeAs",
		fmt.Sprintf("%s cannot be serialized as %s", t, as))
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
