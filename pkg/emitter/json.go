package emitter

import (
	"io"
	"math"
	"regexp"
	"strconv"

	"github.com/bytedance/sonic/ast"

	"github.com/lk2023060901/graphdoc-go/internal/json"
	"github.com/lk2023060901/graphdoc-go/pkg/events"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][-+]?[0-9]+)?$`)

type jsonFrame struct {
	kind   events.Kind
	anchor string
	key    string
	hasKey bool
	pairs  []ast.Pair
	items  []ast.Node
}

// JSONEmitter 使用 sonic 的 AST 将事件流渲染为 JSON，每个 document 输出一行（或缩进后的一段）。
//
// JSON 没有锚点和标签：指向已闭合锚点的 Alias 会被展开为锚点节点的副本，
// 指向仍未闭合锚点（即环）的 Alias 返回 ErrUnsupportedEvent；标签只用于决定标量的 JSON 类型。
type JSONEmitter struct {
	w      io.Writer
	prefix string
	indent string

	state   streamState
	stack   []*jsonFrame
	root    *ast.Node
	anchors map[string]ast.Node
}

type JSONOption func(e *JSONEmitter)

// WithJSONIndent 设置缩进，语义同 encoding/json.MarshalIndent。
func WithJSONIndent(prefix, indent string) JSONOption {
	return func(e *JSONEmitter) {
		e.prefix = prefix
		e.indent = indent
	}
}

func NewJSONEmitter(w io.Writer, opts ...JSONOption) *JSONEmitter {
	e := &JSONEmitter{w: w}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *JSONEmitter) Emit(ev events.Event) error {
	atKey := e.state.expectingKey()
	if err := e.state.validate(ev); err != nil {
		return err
	}

	switch ev := ev.(type) {
	case events.DocumentStart:
		e.stack = nil
		e.root = nil
		e.anchors = make(map[string]ast.Node)

	case events.Scalar:
		if atKey {
			top := e.stack[len(e.stack)-1]
			top.key, top.hasKey = ev.Value, true
			return nil
		}
		n := jsonScalar(ev)
		if ev.Anchor != "" {
			e.anchors[ev.Anchor] = n
		}
		e.add(n)

	case events.Alias:
		if atKey {
			return merr.WrapErrUnsupportedEvent(ev.String(), "alias used as mapping key")
		}
		if !e.state.closed(ev.Anchor) {
			return merr.WrapErrUnsupportedEvent(ev.String(), "alias to an enclosing node cannot be represented in JSON")
		}
		e.add(e.anchors[ev.Anchor])

	case events.SequenceStart:
		if atKey {
			return merr.WrapErrUnsupportedEvent(ev.String(), "sequence used as mapping key")
		}
		e.stack = append(e.stack, &jsonFrame{kind: events.SequenceStartKind, anchor: ev.Anchor})

	case events.MappingStart:
		if atKey {
			return merr.WrapErrUnsupportedEvent(ev.String(), "mapping used as mapping key")
		}
		e.stack = append(e.stack, &jsonFrame{kind: events.MappingStartKind, anchor: ev.Anchor})

	case events.SequenceEnd, events.MappingEnd:
		top := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]
		var n ast.Node
		if top.kind == events.MappingStartKind {
			n = ast.NewObject(top.pairs)
		} else {
			n = ast.NewArray(top.items)
		}
		if top.anchor != "" {
			e.anchors[top.anchor] = n
		}
		e.add(n)

	case events.DocumentEnd:
		return e.flush()
	}
	return nil
}

func (e *JSONEmitter) add(n ast.Node) {
	if len(e.stack) == 0 {
		e.root = &n
		return
	}
	top := e.stack[len(e.stack)-1]
	if top.kind == events.MappingStartKind {
		top.pairs = append(top.pairs, ast.NewPair(top.key, n))
		top.key, top.hasKey = "", false
		return
	}
	top.items = append(top.items, n)
}

func (e *JSONEmitter) flush() error {
	var (
		buf []byte
		err error
	)
	if e.indent != "" || e.prefix != "" {
		buf, err = json.MarshalIndent(e.root, e.prefix, e.indent)
	} else {
		buf, err = e.root.MarshalJSON()
	}
	if err != nil {
		return merr.WrapErrEmitFailed(events.DocumentEndKind, err)
	}
	buf = append(buf, '\n')
	if _, err := e.w.Write(buf); err != nil {
		return merr.WrapErrEmitFailed(events.DocumentEndKind, err)
	}
	e.root = nil
	return nil
}

// jsonScalar 依据标签决定标量的 JSON 类型，无标签的 plain 标量按 YAML core schema 解析。
func jsonScalar(ev events.Scalar) ast.Node {
	tag := ShortTag(ev.Tag)
	if tag == "" && (ev.Style == events.AnyScalarStyle || ev.Style == events.PlainScalarStyle) {
		tag = resolvePlain(ev.Value)
	}

	switch tag {
	case NullTag:
		return ast.NewNull()
	case BoolTag:
		if b, err := strconv.ParseBool(ev.Value); err == nil {
			return ast.NewBool(b)
		}
	case IntTag, FloatTag:
		if jsonNumber.MatchString(ev.Value) {
			return ast.NewNumber(ev.Value)
		}
	}
	return ast.NewString(ev.Value)
}

func resolvePlain(value string) string {
	switch value {
	case "", "~", "null", "Null", "NULL":
		return NullTag
	case "true", "True", "TRUE", "false", "False", "FALSE":
		return BoolTag
	}
	if jsonNumber.MatchString(value) {
		if _, err := strconv.ParseInt(value, 10, 64); err == nil {
			return IntTag
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(f, 0) {
			return FloatTag
		}
	}
	return StrTag
}
