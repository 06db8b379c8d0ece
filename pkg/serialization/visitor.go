package serialization

import (
	"reflect"

	"github.com/lk2023060901/graphdoc-go/pkg/emitter"
	"github.com/lk2023060901/graphdoc-go/pkg/serialization/introspect"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

// ObjectGraphVisitor 由遍历策略驱动。
// Enter 系列方法返回 false 时跳过对应节点，错误会立即终止遍历。
type ObjectGraphVisitor interface {
	Enter(node GraphNode) (bool, error)
	EnterMapping(key, value GraphNode) (bool, error)
	EnterProperty(property introspect.PropertyDescriptor, value GraphNode) (bool, error)
	VisitScalar(node GraphNode) error
	VisitMappingStart(node GraphNode, keyType, valueType reflect.Type) error
	VisitMappingEnd(node GraphNode) error
	VisitSequenceStart(node GraphNode, elementType reflect.Type) error
	VisitSequenceEnd(node GraphNode) error
}

// ChainedObjectGraphVisitor 把所有调用转交给 next。
type ChainedObjectGraphVisitor struct {
	next ObjectGraphVisitor
}

func NewChainedObjectGraphVisitor(next ObjectGraphVisitor) ChainedObjectGraphVisitor {
	return ChainedObjectGraphVisitor{next: next}
}

func (v ChainedObjectGraphVisitor) Enter(node GraphNode) (bool, error) {
	return v.next.Enter(node)
}

func (v ChainedObjectGraphVisitor) EnterMapping(key, value GraphNode) (bool, error) {
	return v.next.EnterMapping(key, value)
}

func (v ChainedObjectGraphVisitor) EnterProperty(property introspect.PropertyDescriptor, value GraphNode) (bool, error) {
	return v.next.EnterProperty(property, value)
}

func (v ChainedObjectGraphVisitor) VisitScalar(node GraphNode) error {
	return v.next.VisitScalar(node)
}

func (v ChainedObjectGraphVisitor) VisitMappingStart(node GraphNode, keyType, valueType reflect.Type) error {
	return v.next.VisitMappingStart(node, keyType, valueType)
}

func (v ChainedObjectGraphVisitor) VisitMappingEnd(node GraphNode) error {
	return v.next.VisitMappingEnd(node)
}

func (v ChainedObjectGraphVisitor) VisitSequenceStart(node GraphNode, elementType reflect.Type) error {
	return v.next.VisitSequenceStart(node, elementType)
}

func (v ChainedObjectGraphVisitor) VisitSequenceEnd(node GraphNode) error {
	return v.next.VisitSequenceEnd(node)
}

// EmittingObjectGraphVisitor 位于访问链末端，把每次访问转换为事件描述。
type EmittingObjectGraphVisitor struct {
	eventEmitter EventEmitter
}

func NewEmittingObjectGraphVisitor(eventEmitter EventEmitter) *EmittingObjectGraphVisitor {
	return &EmittingObjectGraphVisitor{eventEmitter: eventEmitter}
}

func (v *EmittingObjectGraphVisitor) Enter(GraphNode) (bool, error) { return true, nil }

func (v *EmittingObjectGraphVisitor) EnterMapping(_, _ GraphNode) (bool, error) { return true, nil }

func (v *EmittingObjectGraphVisitor) EnterProperty(introspect.PropertyDescriptor, GraphNode) (bool, error) {
	return true, nil
}

func (v *EmittingObjectGraphVisitor) VisitScalar(node GraphNode) error {
	return v.eventEmitter.EmitScalar(newScalarInfo(node, ""))
}

func (v *EmittingObjectGraphVisitor) VisitMappingStart(node GraphNode, keyType, valueType reflect.Type) error {
	return v.eventEmitter.EmitMappingStart(newMappingStartInfo(node, "", keyType, valueType))
}

func (v *EmittingObjectGraphVisitor) VisitMappingEnd(node GraphNode) error {
	return v.eventEmitter.EmitMappingEnd(&MappingEndEventInfo{Source: node})
}

func (v *EmittingObjectGraphVisitor) VisitSequenceStart(node GraphNode, elementType reflect.Type) error {
	return v.eventEmitter.EmitSequenceStart(newSequenceStartInfo(node, "", elementType))
}

func (v *EmittingObjectGraphVisitor) VisitSequenceEnd(node GraphNode) error {
	return v.eventEmitter.EmitSequenceEnd(&SequenceEndEventInfo{Source: node})
}

// CustomSerializationObjectGraphVisitor 在节点进入时查找接受其运行时类型的转换器，
// 命中后由转换器直接写入 sink，节点不再继续遍历。
type CustomSerializationObjectGraphVisitor struct {
	ChainedObjectGraphVisitor
	converters converterList
	sink       emitter.Emitter
}

func NewCustomSerializationObjectGraphVisitor(next ObjectGraphVisitor, converters []TypeConverter, sink emitter.Emitter) *CustomSerializationObjectGraphVisitor {
	return &CustomSerializationObjectGraphVisitor{
		ChainedObjectGraphVisitor: NewChainedObjectGraphVisitor(next),
		converters:                converters,
		sink:                      sink,
	}
}

func (v *CustomSerializationObjectGraphVisitor) Enter(node GraphNode) (bool, error) {
	if !node.IsNil() {
		if c := v.converters.find(node.Type); c != nil {
			if err := c.WriteYAML(v.sink, node.Interface(), node.Type); err != nil {
				return false, merr.WrapErrConverterFailed(node.Type.String(), err)
			}
			return false, nil
		}
	}
	return v.next.Enter(node)
}
