// Package emitter 将 events 事件流渲染为文本文档。
package emitter

import (
	"strings"

	"github.com/lk2023060901/graphdoc-go/pkg/events"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

// Emitter 接收文档事件流。
// 实现需要拒绝结构不合法的事件流（未配对的 End、引用未知锚点的 Alias 等）。
type Emitter interface {
	Emit(e events.Event) error
}

// Func 将普通函数适配为 Emitter。
type Func func(e events.Event) error

func (f Func) Emit(e events.Event) error {
	return f(e)
}

const (
	tagPrefix = "tag:yaml.org,2002:"

	NullTag      = "!!null"
	BoolTag      = "!!bool"
	IntTag       = "!!int"
	FloatTag     = "!!float"
	StrTag       = "!!str"
	BinaryTag    = "!!binary"
	TimestampTag = "!!timestamp"
)

// ShortTag 将 "tag:yaml.org,2002:xxx" 形式的标签转换为 "!!xxx"。
func ShortTag(tag string) string {
	if strings.HasPrefix(tag, tagPrefix) {
		return "!!" + tag[len(tagPrefix):]
	}
	return tag
}

type frame struct {
	kind     events.Kind
	anchor   string
	children int
}

// streamState 校验事件流的结构：
// stream 包含若干 document，每个 document 恰好一个根节点，集合的 Start/End 成对出现，
// mapping 的子节点数为偶数，Alias 只能引用当前 document 中已声明的锚点。
type streamState struct {
	started    bool
	ended      bool
	inDocument bool
	hasRoot    bool
	stack      []frame
	// anchors 记录锚点是否已经闭合，值为 false 表示锚点所在的集合仍未结束。
	anchors map[string]bool
}

func (s *streamState) validate(e events.Event) error {
	switch ev := e.(type) {
	case events.StreamStart:
		if s.started {
			return merr.WrapErrInvalidEventStream("duplicate stream start")
		}
		s.started = true

	case events.StreamEnd:
		if !s.started || s.ended {
			return merr.WrapErrInvalidEventStream("stream end without stream start")
		}
		if s.inDocument {
			return merr.WrapErrInvalidEventStream("stream end inside document")
		}
		s.ended = true

	case events.DocumentStart:
		if !s.started || s.ended {
			return merr.WrapErrInvalidEventStream("document start outside stream")
		}
		if s.inDocument {
			return merr.WrapErrInvalidEventStream("nested document start")
		}
		s.inDocument = true
		s.hasRoot = false
		s.anchors = make(map[string]bool)

	case events.DocumentEnd:
		if !s.inDocument {
			return merr.WrapErrInvalidEventStream("document end without document start")
		}
		if len(s.stack) > 0 {
			return merr.WrapErrInvalidEventStream("document end with unclosed collection")
		}
		if !s.hasRoot {
			return merr.WrapErrInvalidEventStream("empty document")
		}
		s.inDocument = false

	case events.Scalar:
		if err := s.node(); err != nil {
			return err
		}
		if err := s.declare(ev.Anchor, true); err != nil {
			return err
		}

	case events.Alias:
		if err := s.node(); err != nil {
			return err
		}
		if _, ok := s.anchors[ev.Anchor]; !ok {
			return merr.WrapErrInvalidEventStream("alias to unknown anchor " + ev.Anchor)
		}

	case events.SequenceStart:
		if err := s.node(); err != nil {
			return err
		}
		if err := s.declare(ev.Anchor, false); err != nil {
			return err
		}
		s.stack = append(s.stack, frame{kind: events.SequenceStartKind, anchor: ev.Anchor})

	case events.MappingStart:
		if err := s.node(); err != nil {
			return err
		}
		if err := s.declare(ev.Anchor, false); err != nil {
			return err
		}
		s.stack = append(s.stack, frame{kind: events.MappingStartKind, anchor: ev.Anchor})

	case events.SequenceEnd:
		return s.end(events.SequenceStartKind)

	case events.MappingEnd:
		return s.end(events.MappingStartKind)

	default:
		return merr.WrapErrInvalidEventStream("unknown event")
	}
	return nil
}

func (s *streamState) node() error {
	if !s.inDocument {
		return merr.WrapErrInvalidEventStream("node outside document")
	}
	if len(s.stack) == 0 {
		if s.hasRoot {
			return merr.WrapErrInvalidEventStream("document has more than one root node")
		}
		s.hasRoot = true
		return nil
	}
	s.stack[len(s.stack)-1].children++
	return nil
}

func (s *streamState) declare(anchor string, closed bool) error {
	if anchor == "" {
		return nil
	}
	if _, ok := s.anchors[anchor]; ok {
		return merr.WrapErrInvalidEventStream("duplicate anchor " + anchor)
	}
	s.anchors[anchor] = closed
	return nil
}

func (s *streamState) end(kind events.Kind) error {
	if len(s.stack) == 0 || s.stack[len(s.stack)-1].kind != kind {
		return merr.WrapErrInvalidEventStream("unbalanced " + kind.String() + " end")
	}
	top := s.stack[len(s.stack)-1]
	if kind == events.MappingStartKind && top.children%2 != 0 {
		return merr.WrapErrInvalidEventStream("mapping key without value")
	}
	s.stack = s.stack[:len(s.stack)-1]
	if top.anchor != "" {
		s.anchors[top.anchor] = true
	}
	return nil
}

// closed 判断锚点是否已经闭合。
func (s *streamState) closed(anchor string) bool {
	return s.anchors[anchor]
}

// expectingKey 判断下一个节点是否位于 mapping 的 key 位置。
func (s *streamState) expectingKey() bool {
	if len(s.stack) == 0 {
		return false
	}
	top := s.stack[len(s.stack)-1]
	return top.kind == events.MappingStartKind && top.children%2 == 0
}
