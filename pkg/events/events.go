// Package events 定义文档级事件模型，由序列化器产生、交给 emitter 渲染为文本。
//
// 事件的 String 形式与 YAML test-suite 的事件格式一致，
// 例如 "+MAP &A1"、"=VAL :a"、"=ALI *A1"，便于在测试中比较整条事件流。
package events

import (
	"strings"
)

type Kind int

const (
	StreamStartKind Kind = iota
	StreamEndKind
	DocumentStartKind
	DocumentEndKind
	ScalarKind
	SequenceStartKind
	SequenceEndKind
	MappingStartKind
	MappingEndKind
	AliasKind
)

var kindNames = map[Kind]string{
	StreamStartKind:   "stream_start",
	StreamEndKind:     "stream_end",
	DocumentStartKind: "document_start",
	DocumentEndKind:   "document_end",
	ScalarKind:        "scalar",
	SequenceStartKind: "sequence_start",
	SequenceEndKind:   "sequence_end",
	MappingStartKind:  "mapping_start",
	MappingEndKind:    "mapping_end",
	AliasKind:         "alias",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event 是所有文档事件的公共接口。
type Event interface {
	Kind() Kind
	String() string
}

type ScalarStyle int

const (
	AnyScalarStyle ScalarStyle = iota
	PlainScalarStyle
	SingleQuotedScalarStyle
	DoubleQuotedScalarStyle
	LiteralScalarStyle
	FoldedScalarStyle
)

type SequenceStyle int

const (
	AnySequenceStyle SequenceStyle = iota
	BlockSequenceStyle
	FlowSequenceStyle
)

type MappingStyle int

const (
	AnyMappingStyle MappingStyle = iota
	BlockMappingStyle
	FlowMappingStyle
)

type StreamStart struct{}

func (StreamStart) Kind() Kind     { return StreamStartKind }
func (StreamStart) String() string { return "+STR" }

type StreamEnd struct{}

func (StreamEnd) Kind() Kind     { return StreamEndKind }
func (StreamEnd) String() string { return "-STR" }

type DocumentStart struct {
	Implicit bool
}

func (DocumentStart) Kind() Kind { return DocumentStartKind }

func (e DocumentStart) String() string {
	if e.Implicit {
		return "+DOC"
	}
	return "+DOC ---"
}

type DocumentEnd struct {
	Implicit bool
}

func (DocumentEnd) Kind() Kind { return DocumentEndKind }

func (e DocumentEnd) String() string {
	if e.Implicit {
		return "-DOC"
	}
	return "-DOC ..."
}

// Scalar 携带已渲染的标量文本。
// IsPlainImplicit 表示以 plain 风格输出时可省略 Tag，
// IsQuotedImplicit 表示以引号风格输出时可省略 Tag。
type Scalar struct {
	Anchor           string
	Tag              string
	Value            string
	Style            ScalarStyle
	IsPlainImplicit  bool
	IsQuotedImplicit bool
}

func (Scalar) Kind() Kind { return ScalarKind }

func (e Scalar) String() string {
	var sb strings.Builder
	sb.WriteString("=VAL")
	writeProperties(&sb, e.Anchor, e.Tag)
	sb.WriteByte(' ')
	switch e.Style {
	case SingleQuotedScalarStyle:
		sb.WriteByte('\'')
	case DoubleQuotedScalarStyle:
		sb.WriteByte('"')
	case LiteralScalarStyle:
		sb.WriteByte('|')
	case FoldedScalarStyle:
		sb.WriteByte('>')
	default:
		sb.WriteByte(':')
	}
	sb.WriteString(escape(e.Value))
	return sb.String()
}

type SequenceStart struct {
	Anchor   string
	Tag      string
	Implicit bool
	Style    SequenceStyle
}

func (SequenceStart) Kind() Kind { return SequenceStartKind }

func (e SequenceStart) String() string {
	var sb strings.Builder
	sb.WriteString("+SEQ")
	if e.Style == FlowSequenceStyle {
		sb.WriteString(" []")
	}
	writeProperties(&sb, e.Anchor, e.Tag)
	return sb.String()
}

type SequenceEnd struct{}

func (SequenceEnd) Kind() Kind     { return SequenceEndKind }
func (SequenceEnd) String() string { return "-SEQ" }

type MappingStart struct {
	Anchor   string
	Tag      string
	Implicit bool
	Style    MappingStyle
}

func (MappingStart) Kind() Kind { return MappingStartKind }

func (e MappingStart) String() string {
	var sb strings.Builder
	sb.WriteString("+MAP")
	if e.Style == FlowMappingStyle {
		sb.WriteString(" {}")
	}
	writeProperties(&sb, e.Anchor, e.Tag)
	return sb.String()
}

type MappingEnd struct{}

func (MappingEnd) Kind() Kind     { return MappingEndKind }
func (MappingEnd) String() string { return "-MAP" }

// Alias 引用此前以同名锚点输出的节点，本身不携带锚点。
type Alias struct {
	Anchor string
}

func (Alias) Kind() Kind { return AliasKind }

func (e Alias) String() string {
	return "=ALI *" + e.Anchor
}

func writeProperties(sb *strings.Builder, anchor, tag string) {
	if anchor != "" {
		sb.WriteString(" &")
		sb.WriteString(anchor)
	}
	if tag != "" {
		sb.WriteString(" <")
		sb.WriteString(tag)
		sb.WriteByte('>')
	}
}

var escaper = strings.NewReplacer(
	"\\", "\\\\",
	"\n", "\\n",
	"\t", "\\t",
	"\r", "\\r",
	"\b", "\\b",
)

func escape(s string) string {
	return escaper.Replace(s)
}

// IsStart 判断事件是否开启一个集合。
func IsStart(e Event) bool {
	k := e.Kind()
	return k == MappingStartKind || k == SequenceStartKind
}

// IsEnd 判断事件是否结束一个集合。
func IsEnd(e Event) bool {
	k := e.Kind()
	return k == MappingEndKind || k == SequenceEndKind
}
