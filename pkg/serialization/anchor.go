package serialization

import (
	"reflect"
	"strconv"
	"unsafe"

	"github.com/lk2023060901/graphdoc-go/pkg/serialization/introspect"
	"github.com/lk2023060901/graphdoc-go/pkg/util/typeutil"
)

const anchorPrefix = "A"

// objectID 标识一个可被多处引用的对象：指针、map 与非空 slice。
// 类型参与比较，因此地址相同但类型不同的值不会被视为同一对象。
type objectID struct {
	typ reflect.Type
	ptr unsafe.Pointer
	len int
}

func identityOf(v reflect.Value) (objectID, bool) {
	if !v.IsValid() {
		return objectID{}, false
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() || v.Type().Elem().Size() == 0 {
			return objectID{}, false
		}
		return objectID{typ: v.Type(), ptr: v.UnsafePointer()}, true
	case reflect.Map:
		if v.IsNil() {
			return objectID{}, false
		}
		return objectID{typ: v.Type(), ptr: v.UnsafePointer()}, true
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 || v.Type().Elem().Size() == 0 {
			return objectID{}, false
		}
		return objectID{typ: v.Type(), ptr: v.UnsafePointer(), len: v.Len()}, true
	}
	return objectID{}, false
}

// AliasProvider 返回对象在输出中使用的锚点名，没有锚点时返回空串。
type AliasProvider interface {
	GetAlias(v reflect.Value) string
}

// NopAliasProvider 不为任何对象分配锚点，用于关闭别名的场景。
type NopAliasProvider struct{}

func (NopAliasProvider) GetAlias(reflect.Value) string { return "" }

// AnchorAssigner 是第一遍遍历使用的访问者：
// 记录每个可共享对象的首次出现，再次遇到时为其分配锚点并跳过其子节点。
type AnchorAssigner struct {
	seen    map[objectID]struct{}
	anchors map[objectID]string
	skip    func(t reflect.Type) bool
}

// NewAnchorAssigner 创建锚点分配器，skip 返回 true 的类型不参与分配，也不会展开。
func NewAnchorAssigner(skip func(t reflect.Type) bool) *AnchorAssigner {
	return &AnchorAssigner{
		seen:    make(map[objectID]struct{}),
		anchors: make(map[objectID]string),
		skip:    skip,
	}
}

func (a *AnchorAssigner) Enter(node GraphNode) (bool, error) {
	if a.skip != nil && !node.IsNil() && a.skip(node.Type) {
		return false, nil
	}
	id, ok := identityOf(node.Value)
	if !ok {
		return true, nil
	}
	if _, seen := a.seen[id]; !seen {
		a.seen[id] = struct{}{}
		return true, nil
	}
	if _, assigned := a.anchors[id]; !assigned {
		a.anchors[id] = anchorPrefix + strconv.Itoa(len(a.anchors)+1)
	}
	return false, nil
}

func (a *AnchorAssigner) EnterMapping(_, _ GraphNode) (bool, error) { return true, nil }

func (a *AnchorAssigner) EnterProperty(introspect.PropertyDescriptor, GraphNode) (bool, error) {
	return true, nil
}

func (a *AnchorAssigner) VisitScalar(GraphNode) error { return nil }

func (a *AnchorAssigner) VisitMappingStart(GraphNode, reflect.Type, reflect.Type) error { return nil }

func (a *AnchorAssigner) VisitMappingEnd(GraphNode) error { return nil }

func (a *AnchorAssigner) VisitSequenceStart(GraphNode, reflect.Type) error { return nil }

func (a *AnchorAssigner) VisitSequenceEnd(GraphNode) error { return nil }

func (a *AnchorAssigner) GetAlias(v reflect.Value) string {
	id, ok := identityOf(v)
	if !ok {
		return ""
	}
	return a.anchors[id]
}

// Len 返回已分配的锚点数量。
func (a *AnchorAssigner) Len() int {
	return len(a.anchors)
}

// AnchorAssigningObjectGraphVisitor 是第二遍遍历中的访问者：
// 对象第一次出现时携带锚点输出，之后的出现只输出别名。
type AnchorAssigningObjectGraphVisitor struct {
	ChainedObjectGraphVisitor
	eventEmitter EventEmitter
	aliases      AliasProvider
	emitted      typeutil.Set[string]
}

func NewAnchorAssigningObjectGraphVisitor(next ObjectGraphVisitor, eventEmitter EventEmitter, aliases AliasProvider) *AnchorAssigningObjectGraphVisitor {
	return &AnchorAssigningObjectGraphVisitor{
		ChainedObjectGraphVisitor: NewChainedObjectGraphVisitor(next),
		eventEmitter:              eventEmitter,
		aliases:                   aliases,
		emitted:                   typeutil.NewSet[string](),
	}
}

func (v *AnchorAssigningObjectGraphVisitor) Enter(node GraphNode) (bool, error) {
	if alias := v.aliases.GetAlias(node.Value); alias != "" {
		if v.emitted.Contain(alias) {
			return false, v.eventEmitter.EmitAlias(&AliasEventInfo{Source: node, Alias: alias})
		}
		v.emitted.Insert(alias)
	}
	return v.next.Enter(node)
}

func (v *AnchorAssigningObjectGraphVisitor) VisitScalar(node GraphNode) error {
	return v.eventEmitter.EmitScalar(newScalarInfo(node, v.aliases.GetAlias(node.Value)))
}

func (v *AnchorAssigningObjectGraphVisitor) VisitMappingStart(node GraphNode, keyType, valueType reflect.Type) error {
	return v.eventEmitter.EmitMappingStart(newMappingStartInfo(node, v.aliases.GetAlias(node.Value), keyType, valueType))
}

func (v *AnchorAssigningObjectGraphVisitor) VisitSequenceStart(node GraphNode, elementType reflect.Type) error {
	return v.eventEmitter.EmitSequenceStart(newSequenceStartInfo(node, v.aliases.GetAlias(node.Value), elementType))
}
