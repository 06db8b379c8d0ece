package emitter

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/lk2023060901/graphdoc-go/pkg/events"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

const defaultIndent = 2

// YAMLEmitter 将事件流组装为 yaml.v3 的节点树，
// 每个 document 结束时交给 yaml.Encoder 输出。
type YAMLEmitter struct {
	w      io.Writer
	indent int

	enc     *yaml.Encoder
	state   streamState
	stack   []*yaml.Node
	doc     *yaml.Node
	anchors map[string]*yaml.Node
}

type YAMLOption func(e *YAMLEmitter)

// WithIndent 设置缩进空格数。
func WithIndent(n int) YAMLOption {
	return func(e *YAMLEmitter) {
		if n > 0 {
			e.indent = n
		}
	}
}

func NewYAMLEmitter(w io.Writer, opts ...YAMLOption) *YAMLEmitter {
	e := &YAMLEmitter{
		w:      w,
		indent: defaultIndent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *YAMLEmitter) Emit(ev events.Event) error {
	if err := e.state.validate(ev); err != nil {
		return err
	}

	switch ev := ev.(type) {
	case events.StreamStart:
		e.enc = yaml.NewEncoder(e.w)
		e.enc.SetIndent(e.indent)

	case events.DocumentStart:
		e.doc = &yaml.Node{Kind: yaml.DocumentNode}
		e.stack = []*yaml.Node{e.doc}
		e.anchors = make(map[string]*yaml.Node)

	case events.Scalar:
		e.add(scalarNode(ev), ev.Anchor)

	case events.Alias:
		e.add(&yaml.Node{Kind: yaml.AliasNode, Value: ev.Anchor, Alias: e.anchors[ev.Anchor]}, "")

	case events.SequenceStart:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: ev.Tag, Anchor: ev.Anchor}
		if ev.Style == events.FlowSequenceStyle {
			n.Style = yaml.FlowStyle
		}
		if ev.Tag != "" && !ev.Implicit {
			n.Style |= yaml.TaggedStyle
		}
		e.add(n, ev.Anchor)
		e.stack = append(e.stack, n)

	case events.MappingStart:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: ev.Tag, Anchor: ev.Anchor}
		if ev.Style == events.FlowMappingStyle {
			n.Style = yaml.FlowStyle
		}
		if ev.Tag != "" && !ev.Implicit {
			n.Style |= yaml.TaggedStyle
		}
		e.add(n, ev.Anchor)
		e.stack = append(e.stack, n)

	case events.SequenceEnd, events.MappingEnd:
		e.stack = e.stack[:len(e.stack)-1]

	case events.DocumentEnd:
		doc := e.doc
		e.doc, e.stack, e.anchors = nil, nil, nil
		if err := e.enc.Encode(doc); err != nil {
			return merr.WrapErrEmitFailed(ev.Kind(), err)
		}

	case events.StreamEnd:
		if err := e.enc.Close(); err != nil {
			return merr.WrapErrEmitFailed(ev.Kind(), err)
		}
	}
	return nil
}

func (e *YAMLEmitter) add(n *yaml.Node, anchor string) {
	parent := e.stack[len(e.stack)-1]
	parent.Content = append(parent.Content, n)
	if anchor != "" {
		e.anchors[anchor] = n
	}
}

func scalarNode(ev events.Scalar) *yaml.Node {
	n := &yaml.Node{
		Kind:   yaml.ScalarNode,
		Tag:    ev.Tag,
		Value:  ev.Value,
		Anchor: ev.Anchor,
	}
	switch ev.Style {
	case events.SingleQuotedScalarStyle:
		n.Style = yaml.SingleQuotedStyle
	case events.DoubleQuotedScalarStyle:
		n.Style = yaml.DoubleQuotedStyle
	case events.LiteralScalarStyle:
		n.Style = yaml.LiteralStyle
	case events.FoldedScalarStyle:
		n.Style = yaml.FoldedStyle
	}
	if ev.Tag != "" && !ev.IsPlainImplicit && !ev.IsQuotedImplicit {
		n.Style |= yaml.TaggedStyle
	}
	return n
}
