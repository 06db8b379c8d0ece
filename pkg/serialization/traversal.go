package serialization

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/lk2023060901/graphdoc-go/pkg/serialization/introspect"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

// DefaultMaxRecursion 是未显式配置时允许的最大遍历深度。
const DefaultMaxRecursion = 50

// ObjectGraphTraversalStrategy 以深度优先的顺序遍历对象图并驱动访问者。
type ObjectGraphTraversalStrategy interface {
	Traverse(graph GraphNode, visitor ObjectGraphVisitor) error
}

// traverser 是 Full 与 Roundtrip 共用的遍历逻辑。
// suppressDefaults 为真时跳过零值属性，只在 Full 模式下设置；
// beforeObject 在结构体输出 mapping-start 之前调用，可以拒绝该节点或为其补充标签。
type traverser struct {
	td               introspect.TypeDescriptor
	maxRecursion     int
	suppressDefaults bool
	requireWritable  bool
	beforeObject     func(node *GraphNode, v reflect.Value) error
}

func newTraverser(td introspect.TypeDescriptor, maxRecursion int) (traverser, error) {
	if td == nil {
		return traverser{}, merr.WrapErrInvalidConfiguration("typeDescriptor", "must not be nil")
	}
	if maxRecursion <= 0 {
		return traverser{}, merr.WrapErrInvalidConfiguration("maxRecursion",
			fmt.Sprintf("must be positive, got %d", maxRecursion))
	}
	return traverser{td: td, maxRecursion: maxRecursion}, nil
}

func (t *traverser) Traverse(graph GraphNode, visitor ObjectGraphVisitor) error {
	return t.traverse(graph, visitor, 0)
}

func (t *traverser) traverse(node GraphNode, visitor ObjectGraphVisitor, depth int) error {
	depth++
	if depth > t.maxRecursion {
		return merr.WrapErrRecursionLimitExceeded(depth, t.maxRecursion)
	}

	ok, err := visitor.Enter(node)
	if err != nil || !ok {
		return err
	}

	v, c := resolve(node.Value)
	switch c {
	case Null, PrimitiveScalar, TextScalar, TemporalScalar:
		return visitor.VisitScalar(node)
	case DictionaryLike:
		return t.traverseDictionary(node, v, visitor, depth)
	case SequenceLike:
		return t.traverseSequence(node, v, visitor, depth)
	case StructuredObject:
		return t.traverseObject(node, v, visitor, depth)
	}
	return merr.WrapErrUnsupportedScalarKind(v.Kind(), node.Type.String())
}

func (t *traverser) traverseDictionary(node GraphNode, v reflect.Value, visitor ObjectGraphVisitor, depth int) error {
	var (
		keyType, valueType = anyType, anyType
		entries            [][2]GraphNode
	)

	if d, ok := asDictionary(v); ok {
		if typed, ok := d.(TypedDictionary); ok {
			keyType, valueType = typed.KeyType(), typed.ValueType()
		}
		for _, k := range d.Keys() {
			entries = append(entries, [2]GraphNode{
				NewGraphNode(reflect.ValueOf(k), keyType),
				NewGraphNode(reflect.ValueOf(d.Get(k)), valueType),
			})
		}
	} else {
		keyType, valueType = v.Type().Key(), v.Type().Elem()
		keys := v.MapKeys()
		sortKeys(keys)
		for _, k := range keys {
			entries = append(entries, [2]GraphNode{
				NewGraphNode(k, keyType),
				NewGraphNode(v.MapIndex(k), valueType),
			})
		}
	}

	if err := visitor.VisitMappingStart(node, keyType, valueType); err != nil {
		return err
	}
	for _, entry := range entries {
		ok, err := visitor.EnterMapping(entry[0], entry[1])
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := t.traverse(entry[0], visitor, depth); err != nil {
			return err
		}
		if err := t.traverse(entry[1], visitor, depth); err != nil {
			return err
		}
	}
	return visitor.VisitMappingEnd(node)
}

func (t *traverser) traverseSequence(node GraphNode, v reflect.Value, visitor ObjectGraphVisitor, depth int) error {
	var (
		elementType = anyType
		items       []GraphNode
	)

	if s, ok := asSequence(v); ok {
		if typed, ok := s.(TypedSequence); ok {
			elementType = typed.ElementType()
		}
		for _, item := range s.Items() {
			items = append(items, NewGraphNode(reflect.ValueOf(item), elementType))
		}
	} else {
		elementType = v.Type().Elem()
		for i := 0; i < v.Len(); i++ {
			items = append(items, NewGraphNode(v.Index(i), elementType))
		}
	}

	if err := visitor.VisitSequenceStart(node, elementType); err != nil {
		return err
	}
	for _, item := range items {
		if err := t.traverse(item, visitor, depth); err != nil {
			return err
		}
	}
	return visitor.VisitSequenceEnd(node)
}

func (t *traverser) traverseObject(node GraphNode, v reflect.Value, visitor ObjectGraphVisitor, depth int) error {
	if t.beforeObject != nil {
		if err := t.beforeObject(&node, v); err != nil {
			return err
		}
	}

	if err := visitor.VisitMappingStart(node, stringType, anyType); err != nil {
		return err
	}
	for _, p := range t.td.Properties(v.Type(), t.requireWritable) {
		pv, ok := p.Value(v)
		if !ok {
			continue
		}
		if t.suppressDefaults && !p.AlwaysEmit() && pv.IsZero() {
			continue
		}

		valueNode := NewGraphNode(pv, p.Type())
		if as := p.SerializeAs(); as != nil {
			projected, err := project(pv, as)
			if err != nil {
				return err
			}
			valueNode = GraphNode{Value: projected, Type: as, StaticType: as, SerializeAs: as}
			if projected.IsValid() && as.Kind() == reflect.Interface {
				valueNode = NewGraphNode(projected, as)
				valueNode.SerializeAs = as
			}
		}

		ok, err := visitor.EnterProperty(p, valueNode)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := t.traverse(nameNode(p.Name()), visitor, depth); err != nil {
			return err
		}
		if err := t.traverse(valueNode, visitor, depth); err != nil {
			return err
		}
	}
	return visitor.VisitMappingEnd(node)
}

func asDictionary(v reflect.Value) (Dictionary, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	d, ok := v.Interface().(Dictionary)
	return d, ok
}

func asSequence(v reflect.Value) (Sequence, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	s, ok := v.Interface().(Sequence)
	return s, ok
}

// sortKeys 让 map 的输出顺序稳定：先按类别，再按值。
func sortKeys(keys []reflect.Value) {
	slices.SortStableFunc(keys, func(a, b reflect.Value) int {
		return compareKeys(a, b)
	})
}

func compareKeys(a, b reflect.Value) int {
	a, _ = resolve(a)
	b, _ = resolve(b)
	if !a.IsValid() || !b.IsValid() {
		return cmp.Compare(boolRank(a.IsValid()), boolRank(b.IsValid()))
	}
	ra, rb := keyRank(a.Kind()), keyRank(b.Kind())
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 1:
		return cmp.Compare(boolRank(a.Bool()), boolRank(b.Bool()))
	case 2:
		return cmp.Compare(numeric(a), numeric(b))
	case 3:
		return cmp.Compare(a.String(), b.String())
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func keyRank(k reflect.Kind) int {
	switch k {
	case reflect.Bool:
		return 1
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return 2
	case reflect.String:
		return 3
	}
	return 4
}

func numeric(v reflect.Value) float64 {
	switch {
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	}
	return v.Float()
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// FullObjectGraphTraversalStrategy 输出所有可读属性，不记录类型信息。
type FullObjectGraphTraversalStrategy struct {
	traverser
}

func NewFullObjectGraphTraversalStrategy(td introspect.TypeDescriptor, maxRecursion int, emitDefaults bool) (*FullObjectGraphTraversalStrategy, error) {
	t, err := newTraverser(td, maxRecursion)
	if err != nil {
		return nil, err
	}
	t.suppressDefaults = !emitDefaults
	return &FullObjectGraphTraversalStrategy{traverser: t}, nil
}

// RoundtripObjectGraphTraversalStrategy 只输出可写属性，
// 并在运行时类型与声明类型不一致时为 mapping 标注类型标签。
// 无法被重建且没有转换器接管的结构体会被拒绝。
// 零值属性总是输出，保证反序列化后得到相同的对象。
type RoundtripObjectGraphTraversalStrategy struct {
	traverser
	converters converterList
}

func NewRoundtripObjectGraphTraversalStrategy(td introspect.TypeDescriptor, maxRecursion int, converters []TypeConverter) (*RoundtripObjectGraphTraversalStrategy, error) {
	t, err := newTraverser(td, maxRecursion)
	if err != nil {
		return nil, err
	}
	s := &RoundtripObjectGraphTraversalStrategy{traverser: t, converters: converters}
	s.requireWritable = true
	s.beforeObject = s.checkObject
	return s, nil
}

func (s *RoundtripObjectGraphTraversalStrategy) checkObject(node *GraphNode, v reflect.Value) error {
	if !s.td.Reconstructible(v.Type()) && !s.converters.accepts(node.Type) && !s.converters.accepts(v.Type()) {
		return merr.WrapErrNotReconstructible(v.Type().String())
	}
	if node.SerializeAs == nil && node.Type != node.StaticType {
		node.Tag = TagForType(node.Type)
	}
	return nil
}
