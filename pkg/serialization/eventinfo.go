package serialization

import (
	"reflect"

	"github.com/lk2023060901/graphdoc-go/pkg/events"
)

// ObjectEventInfo 是携带源节点、锚点与标签的事件描述的公共部分。
type ObjectEventInfo struct {
	Source GraphNode
	Anchor string
	Tag    string
}

// ScalarEventInfo 描述一个待输出的标量，RenderedValue 与 Style 由事件发射链补全。
type ScalarEventInfo struct {
	ObjectEventInfo
	RenderedValue    string
	Style            events.ScalarStyle
	IsPlainImplicit  bool
	IsQuotedImplicit bool
}

type MappingStartEventInfo struct {
	ObjectEventInfo
	KeyType    reflect.Type
	ValueType  reflect.Type
	IsImplicit bool
	Style      events.MappingStyle
}

type MappingEndEventInfo struct {
	Source GraphNode
}

type SequenceStartEventInfo struct {
	ObjectEventInfo
	ElementType reflect.Type
	IsImplicit  bool
	Style       events.SequenceStyle
}

type SequenceEndEventInfo struct {
	Source GraphNode
}

type AliasEventInfo struct {
	Source GraphNode
	Alias  string
}

func newScalarInfo(node GraphNode, anchor string) *ScalarEventInfo {
	return &ScalarEventInfo{ObjectEventInfo: ObjectEventInfo{Source: node, Anchor: anchor}}
}

func newMappingStartInfo(node GraphNode, anchor string, keyType, valueType reflect.Type) *MappingStartEventInfo {
	return &MappingStartEventInfo{
		ObjectEventInfo: ObjectEventInfo{Source: node, Anchor: anchor, Tag: node.Tag},
		KeyType:         keyType,
		ValueType:       valueType,
		IsImplicit:      node.Tag == "",
	}
}

func newSequenceStartInfo(node GraphNode, anchor string, elementType reflect.Type) *SequenceStartEventInfo {
	return &SequenceStartEventInfo{
		ObjectEventInfo: ObjectEventInfo{Source: node, Anchor: anchor, Tag: node.Tag},
		ElementType:     elementType,
		IsImplicit:      node.Tag == "",
	}
}
