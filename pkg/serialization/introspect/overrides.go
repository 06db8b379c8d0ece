package introspect

import (
	"reflect"
	"sync"

	"go.uber.org/atomic"
)

type fieldKey struct {
	owner reflect.Type
	field string
}

type fieldOverride struct {
	alias       string
	ignore      bool
	always      bool
	readOnly    bool
	serializeAs reflect.Type
}

// Overrides 为无法修改源码的类型补充成员级别的序列化注解，
// 效果与 yaml 结构体标签相同，优先级高于标签。
//
// field 为 Go 字段名；提升自嵌入结构体的字段应登记在声明它的结构体上。
type Overrides struct {
	mu      sync.RWMutex
	fields  map[fieldKey]*fieldOverride
	version atomic.Uint64
}

func NewOverrides() *Overrides {
	return &Overrides{
		fields: make(map[fieldKey]*fieldOverride),
	}
}

func (o *Overrides) update(owner reflect.Type, field string, fn func(fo *fieldOverride)) *Overrides {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := fieldKey{owner: indirect(owner), field: field}
	fo, ok := o.fields[key]
	if !ok {
		fo = &fieldOverride{}
		o.fields[key] = fo
	}
	fn(fo)
	o.version.Add(1)
	return o
}

// SerializeAs 指定成员按 as 类型序列化，而不是其声明类型。
func (o *Overrides) SerializeAs(owner reflect.Type, field string, as reflect.Type) *Overrides {
	return o.update(owner, field, func(fo *fieldOverride) { fo.serializeAs = as })
}

// Alias 修改成员输出时使用的名称。
func (o *Overrides) Alias(owner reflect.Type, field string, name string) *Overrides {
	return o.update(owner, field, func(fo *fieldOverride) { fo.alias = name })
}

func (o *Overrides) Ignore(owner reflect.Type, field string) *Overrides {
	return o.update(owner, field, func(fo *fieldOverride) { fo.ignore = true })
}

// AlwaysEmit 使成员即使为零值也会被输出。
func (o *Overrides) AlwaysEmit(owner reflect.Type, field string) *Overrides {
	return o.update(owner, field, func(fo *fieldOverride) { fo.always = true })
}

// ReadOnly 将成员标记为只读，roundtrip 模式下不会输出。
func (o *Overrides) ReadOnly(owner reflect.Type, field string) *Overrides {
	return o.update(owner, field, func(fo *fieldOverride) { fo.readOnly = true })
}

func (o *Overrides) lookup(owner reflect.Type, field string) (fieldOverride, bool) {
	if o == nil {
		return fieldOverride{}, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	fo, ok := o.fields[fieldKey{owner: owner, field: field}]
	if !ok {
		return fieldOverride{}, false
	}
	return *fo, true
}

func (o *Overrides) currentVersion() uint64 {
	if o == nil {
		return 0
	}
	return o.version.Load()
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
