package serialization

import (
	"github.com/lk2023060901/graphdoc-go/pkg/emitter"
	"github.com/lk2023060901/graphdoc-go/pkg/events"
	"github.com/lk2023060901/graphdoc-go/pkg/metrics"
)

// EventEmitter 接收事件描述，补全后转换为文档事件。
type EventEmitter interface {
	EmitScalar(info *ScalarEventInfo) error
	EmitMappingStart(info *MappingStartEventInfo) error
	EmitMappingEnd(info *MappingEndEventInfo) error
	EmitSequenceStart(info *SequenceStartEventInfo) error
	EmitSequenceEnd(info *SequenceEndEventInfo) error
	EmitAlias(info *AliasEventInfo) error
}

// ChainedEventEmitter 把所有调用转交给 next，嵌入后按需覆盖个别方法。
type ChainedEventEmitter struct {
	next EventEmitter
}

func NewChainedEventEmitter(next EventEmitter) ChainedEventEmitter {
	return ChainedEventEmitter{next: next}
}

func (e ChainedEventEmitter) EmitScalar(info *ScalarEventInfo) error {
	return e.next.EmitScalar(info)
}

func (e ChainedEventEmitter) EmitMappingStart(info *MappingStartEventInfo) error {
	return e.next.EmitMappingStart(info)
}

func (e ChainedEventEmitter) EmitMappingEnd(info *MappingEndEventInfo) error {
	return e.next.EmitMappingEnd(info)
}

func (e ChainedEventEmitter) EmitSequenceStart(info *SequenceStartEventInfo) error {
	return e.next.EmitSequenceStart(info)
}

func (e ChainedEventEmitter) EmitSequenceEnd(info *SequenceEndEventInfo) error {
	return e.next.EmitSequenceEnd(info)
}

func (e ChainedEventEmitter) EmitAlias(info *AliasEventInfo) error {
	return e.next.EmitAlias(info)
}

// WriterEventEmitter 是发射链的末端，把事件描述原样写入 sink。
type WriterEventEmitter struct {
	sink emitter.Emitter
}

func NewWriterEventEmitter(sink emitter.Emitter) *WriterEventEmitter {
	return &WriterEventEmitter{sink: sink}
}

func (e *WriterEventEmitter) emit(ev events.Event) error {
	metrics.SerializationEvents.WithLabelValues(ev.Kind().String()).Inc()
	return e.sink.Emit(ev)
}

func (e *WriterEventEmitter) EmitScalar(info *ScalarEventInfo) error {
	return e.emit(events.Scalar{
		Anchor:           info.Anchor,
		Tag:              info.Tag,
		Value:            info.RenderedValue,
		Style:            info.Style,
		IsPlainImplicit:  info.IsPlainImplicit,
		IsQuotedImplicit: info.IsQuotedImplicit,
	})
}

func (e *WriterEventEmitter) EmitMappingStart(info *MappingStartEventInfo) error {
	return e.emit(events.MappingStart{Anchor: info.Anchor, Tag: info.Tag, Implicit: info.IsImplicit, Style: info.Style})
}

func (e *WriterEventEmitter) EmitMappingEnd(*MappingEndEventInfo) error {
	return e.emit(events.MappingEnd{})
}

func (e *WriterEventEmitter) EmitSequenceStart(info *SequenceStartEventInfo) error {
	return e.emit(events.SequenceStart{Anchor: info.Anchor, Tag: info.Tag, Implicit: info.IsImplicit, Style: info.Style})
}

func (e *WriterEventEmitter) EmitSequenceEnd(*SequenceEndEventInfo) error {
	return e.emit(events.SequenceEnd{})
}

func (e *WriterEventEmitter) EmitAlias(info *AliasEventInfo) error {
	return e.emit(events.Alias{Anchor: info.Alias})
}

// TypeAssigningEventEmitter 按值的类别渲染标量文本并赋予核心标签。
type TypeAssigningEventEmitter struct {
	ChainedEventEmitter
}

func NewTypeAssigningEventEmitter(next EventEmitter) *TypeAssigningEventEmitter {
	return &TypeAssigningEventEmitter{ChainedEventEmitter: NewChainedEventEmitter(next)}
}

func (e *TypeAssigningEventEmitter) EmitScalar(info *ScalarEventInfo) error {
	form, err := renderScalar(info.Source)
	if err != nil {
		return err
	}
	info.RenderedValue = form.value
	if info.Tag == "" {
		info.Tag = form.tag
	}
	switch info.Tag {
	case emitter.StrTag:
		info.IsPlainImplicit = true
		info.IsQuotedImplicit = true
	case emitter.NullTag, emitter.BoolTag, emitter.IntTag, emitter.FloatTag, emitter.TimestampTag:
		info.IsPlainImplicit = true
	}
	return e.next.EmitScalar(info)
}

var jsonSpecialFloats = map[string]string{".nan": "NaN", ".inf": "+Inf", "-.inf": "-Inf"}

// JSONEventEmitter 产生 JSON 兼容的事件：集合使用 flow 风格，
// 字符串使用双引号，类型标签不输出。
type JSONEventEmitter struct {
	ChainedEventEmitter
}

func NewJSONEventEmitter(next EventEmitter) *JSONEventEmitter {
	return &JSONEventEmitter{ChainedEventEmitter: NewChainedEventEmitter(next)}
}

func (e *JSONEventEmitter) EmitScalar(info *ScalarEventInfo) error {
	form, err := renderScalar(info.Source)
	if err != nil {
		return err
	}
	info.RenderedValue = form.value
	info.Tag = form.tag
	info.IsPlainImplicit = true
	info.IsQuotedImplicit = true
	switch {
	case form.special:
		info.RenderedValue = jsonSpecialFloats[form.value]
		info.Tag = emitter.StrTag
		info.Style = events.DoubleQuotedScalarStyle
	case form.tag == emitter.NullTag, form.tag == emitter.BoolTag,
		form.tag == emitter.IntTag, form.tag == emitter.FloatTag:
		info.Style = events.PlainScalarStyle
	default:
		info.Tag = emitter.StrTag
		info.Style = events.DoubleQuotedScalarStyle
	}
	return e.next.EmitScalar(info)
}

func (e *JSONEventEmitter) EmitMappingStart(info *MappingStartEventInfo) error {
	info.Tag = ""
	info.IsImplicit = true
	info.Style = events.FlowMappingStyle
	return e.next.EmitMappingStart(info)
}

func (e *JSONEventEmitter) EmitSequenceStart(info *SequenceStartEventInfo) error {
	info.Tag = ""
	info.IsImplicit = true
	info.Style = events.FlowSequenceStyle
	return e.next.EmitSequenceStart(info)
}
