package serialization

import (
	"strings"

	"github.com/lk2023060901/graphdoc-go/pkg/serialization/introspect"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

// SerializationOptions 是一组相互独立的开关，按位组合。
type SerializationOptions uint8

const (
	// Roundtrip 只输出可写属性，并在需要时输出类型标签，使文档可以还原为原类型。
	Roundtrip SerializationOptions = 1 << iota
	// DisableAliases 关闭锚点与别名，共享引用会被重复展开。
	DisableAliases
	// EmitDefaults 输出零值属性，Roundtrip 模式下总是输出。
	EmitDefaults
	// JSONCompatible 输出 JSON 兼容的 YAML。
	JSONCompatible

	None SerializationOptions = 0
)

var optionNames = []struct {
	flag SerializationOptions
	name string
}{
	{Roundtrip, "Roundtrip"},
	{DisableAliases, "DisableAliases"},
	{EmitDefaults, "EmitDefaults"},
	{JSONCompatible, "JSONCompatible"},
}

// Has 判断 flag 中的开关是否全部打开。
func (o SerializationOptions) Has(flag SerializationOptions) bool {
	return o&flag == flag
}

func (o SerializationOptions) String() string {
	if o == None {
		return "None"
	}
	var names []string
	for _, n := range optionNames {
		if o.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseSerializationOptions 解析 String 的输出，名称不区分大小写。
func ParseSerializationOptions(s string) (SerializationOptions, error) {
	var o SerializationOptions
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.TrimSpace(part)
		if strings.EqualFold(part, "None") || part == "" {
			continue
		}
		found := false
		for _, n := range optionNames {
			if strings.EqualFold(part, n.name) {
				o |= n.flag
				found = true
				break
			}
		}
		if !found {
			return None, merr.WrapErrInvalidConfiguration("options", "unknown serialization option "+part)
		}
	}
	return o, nil
}

func (o SerializationOptions) mode() string {
	if o.Has(Roundtrip) {
		return "roundtrip"
	}
	return "full"
}

type config struct {
	maxRecursion int
	td           introspect.TypeDescriptor
	converters   []TypeConverter
}

func defaultConfig() config {
	return config{maxRecursion: DefaultMaxRecursion}
}

// Option 配置 Serializer。
type Option func(c *config)

// WithMaxRecursion 设置最大遍历深度，必须为正数。
func WithMaxRecursion(n int) Option {
	return func(c *config) {
		c.maxRecursion = n
	}
}

// WithTypeDescriptor 替换默认的反射类型描述器。
func WithTypeDescriptor(td introspect.TypeDescriptor) Option {
	return func(c *config) {
		c.td = td
	}
}

// WithConverters 在创建时注册转换器，顺序即匹配顺序。
func WithConverters(converters ...TypeConverter) Option {
	return func(c *config) {
		c.converters = append(c.converters, converters...)
	}
}
