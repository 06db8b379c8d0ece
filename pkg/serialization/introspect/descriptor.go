// Package introspect 通过反射发现结构体成员，为序列化提供有序、稳定的成员描述。
package introspect

import (
	"math/big"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lk2023060901/graphdoc-go/pkg/log"
	"github.com/lk2023060901/graphdoc-go/pkg/util/typeutil"
)

const defaultTagName = "yaml"

// PropertyDescriptor 描述结构体的一个可序列化成员。
type PropertyDescriptor interface {
	// Name 为输出时使用的名称。
	Name() string
	// Type 为成员的声明类型。
	Type() reflect.Type
	CanWrite() bool
	// AlwaysEmit 为 true 时，成员即使为零值也会被输出。
	AlwaysEmit() bool
	// SerializeAs 返回成员级别的序列化类型覆盖，没有时返回 nil。
	SerializeAs() reflect.Type
	// Value 读取 target 上的成员值，经过 nil 嵌入指针时返回 false。
	Value(target reflect.Value) (reflect.Value, bool)
}

// TypeDescriptor 按类型返回成员描述列表。
type TypeDescriptor interface {
	// Properties 返回 t 的成员，顺序与声明顺序一致；requireWritable 为 true 时只返回可写成员。
	Properties(t reflect.Type, requireWritable bool) []PropertyDescriptor
	// Reconstructible 判断 t 是否可以只通过零值加成员赋值重建。
	Reconstructible(t reflect.Type) bool
}

type fieldProperty struct {
	name        string
	typ         reflect.Type
	index       []int
	canWrite    bool
	always      bool
	serializeAs reflect.Type
}

func (p *fieldProperty) Name() string              { return p.name }
func (p *fieldProperty) Type() reflect.Type        { return p.typ }
func (p *fieldProperty) CanWrite() bool            { return p.canWrite }
func (p *fieldProperty) AlwaysEmit() bool          { return p.always }
func (p *fieldProperty) SerializeAs() reflect.Type { return p.serializeAs }

func (p *fieldProperty) Value(target reflect.Value) (reflect.Value, bool) {
	for target.Kind() == reflect.Pointer || target.Kind() == reflect.Interface {
		if target.IsNil() {
			return reflect.Value{}, false
		}
		target = target.Elem()
	}
	v, err := target.FieldByIndexErr(p.index)
	if err != nil {
		return reflect.Value{}, false
	}
	return v, true
}

type typeInfo struct {
	version         uint64
	properties      []PropertyDescriptor
	writable        []PropertyDescriptor
	reconstructible bool
}

// ReflectionTypeDescriptor 基于反射与 yaml 结构体标签实现 TypeDescriptor，按类型缓存结果。
//
// 标签格式为 `yaml:"name,opt1,opt2"`：
// "-" 忽略成员，always 表示零值也输出，readonly 表示只读，inline 将嵌入结构体的成员提升到外层。
type ReflectionTypeDescriptor struct {
	tagName   string
	overrides *Overrides
	cache     sync.Map // reflect.Type -> *typeInfo
	warned    *typeutil.ConcurrentSet[reflect.Type]
}

type Option func(d *ReflectionTypeDescriptor)

func WithOverrides(o *Overrides) Option {
	return func(d *ReflectionTypeDescriptor) {
		d.overrides = o
	}
}

// WithTagName 修改读取的结构体标签名，默认为 yaml。
func WithTagName(name string) Option {
	return func(d *ReflectionTypeDescriptor) {
		d.tagName = name
	}
}

func NewReflectionTypeDescriptor(opts ...Option) *ReflectionTypeDescriptor {
	d := &ReflectionTypeDescriptor{
		tagName: defaultTagName,
		warned:  typeutil.NewConcurrentSet[reflect.Type](),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *ReflectionTypeDescriptor) Properties(t reflect.Type, requireWritable bool) []PropertyDescriptor {
	info := d.info(t)
	if info == nil {
		return nil
	}
	if requireWritable {
		return info.writable
	}
	return info.properties
}

func (d *ReflectionTypeDescriptor) Reconstructible(t reflect.Type) bool {
	info := d.info(t)
	if info == nil {
		return true
	}
	return info.reconstructible
}

func (d *ReflectionTypeDescriptor) info(t reflect.Type) *typeInfo {
	t = indirect(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	version := d.overrides.currentVersion()
	if cached, ok := d.cache.Load(t); ok {
		if info := cached.(*typeInfo); info.version == version {
			return info
		}
	}

	props := d.collect(t)
	info := &typeInfo{
		version:    version,
		properties: props,
		writable: lo.Filter(props, func(p PropertyDescriptor, _ int) bool {
			return p.CanWrite()
		}),
		reconstructible: d.reconstructible(t, make(map[reflect.Type]bool)),
	}
	d.cache.Store(t, info)
	return info
}

type candidate struct {
	prop  *fieldProperty
	depth int
}

func (d *ReflectionTypeDescriptor) collect(t reflect.Type) []PropertyDescriptor {
	var candidates []candidate
	d.walk(t, nil, 0, make(map[reflect.Type]bool), &candidates)

	// 同名成员只保留嵌入层级最浅的一个，层级相同时保留先声明的。
	best := make(map[string]int, len(candidates))
	for i, c := range candidates {
		j, ok := best[c.prop.name]
		if !ok || c.depth < candidates[j].depth {
			best[c.prop.name] = i
		}
	}
	props := make([]PropertyDescriptor, 0, len(best))
	for i, c := range candidates {
		if best[c.prop.name] == i {
			props = append(props, c.prop)
		}
	}
	return props
}

func (d *ReflectionTypeDescriptor) walk(t reflect.Type, parent []int, depth int, visiting map[reflect.Type]bool, out *[]candidate) {
	if visiting[t] {
		return
	}
	visiting[t] = true
	defer delete(visiting, t)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), parent...), i)
		name, opts := parseTag(f.Tag.Get(d.tagName))
		fo, _ := d.overrides.lookup(t, f.Name)
		if name == "-" || fo.ignore {
			continue
		}

		if (f.Anonymous && name == "") || opts.inline {
			if et := indirect(f.Type); et.Kind() == reflect.Struct && !opaqueStruct(et) {
				d.walk(et, index, depth+1, visiting, out)
				continue
			}
		}
		if !f.IsExported() {
			if d.warned.Insert(t) {
				log.L().Debug("skip unexported fields", log.FieldGoType(t.String()), zap.String("field", f.Name))
			}
			continue
		}

		if fo.alias != "" {
			name = fo.alias
		}
		if name == "" {
			name = f.Name
		}
		*out = append(*out, candidate{
			prop: &fieldProperty{
				name:        name,
				typ:         f.Type,
				index:       index,
				canWrite:    !(opts.readOnly || fo.readOnly),
				always:      opts.always || fo.always,
				serializeAs: fo.serializeAs,
			},
			depth: depth,
		})
	}
}

// reconstructible 要求每个未被忽略的字段都可以通过反射赋值：
// 字段已导出，或是自身可重建的非指针嵌入结构体。
func (d *ReflectionTypeDescriptor) reconstructible(t reflect.Type, visiting map[reflect.Type]bool) bool {
	if visiting[t] {
		return true
	}
	visiting[t] = true

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _ := parseTag(f.Tag.Get(d.tagName))
		if fo, _ := d.overrides.lookup(t, f.Name); name == "-" || fo.ignore {
			continue
		}
		if f.IsExported() {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && d.reconstructible(f.Type, visiting) {
			continue
		}
		return false
	}
	return true
}

var opaqueStructs = map[reflect.Type]bool{
	reflect.TypeOf(time.Time{}): true,
	reflect.TypeOf(big.Int{}):   true,
	reflect.TypeOf(big.Float{}): true,
	reflect.TypeOf(big.Rat{}):   true,
}

// opaqueStruct 报告 t 是否按标量输出；这类类型嵌入时作为普通成员，不展开其内部字段。
func opaqueStruct(t reflect.Type) bool {
	return opaqueStructs[t]
}

type tagOptions struct {
	always   bool
	readOnly bool
	inline   bool
}

func parseTag(tag string) (string, tagOptions) {
	var opts tagOptions
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "always":
			opts.always = true
		case "readonly":
			opts.readOnly = true
		case "inline":
			opts.inline = true
		}
	}
	return parts[0], opts
}
