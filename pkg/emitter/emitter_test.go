package emitter

import (
	"bytes"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lk2023060901/graphdoc-go/pkg/events"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

func str(v string) events.Scalar {
	return events.Scalar{Tag: StrTag, Value: v, Style: events.AnyScalarStyle, IsPlainImplicit: true, IsQuotedImplicit: true}
}

func document(body ...events.Event) []events.Event {
	out := []events.Event{events.StreamStart{}, events.DocumentStart{Implicit: true}}
	out = append(out, body...)
	return append(out, events.DocumentEnd{Implicit: true}, events.StreamEnd{})
}

// cyclicDocument 描述 {Name: a, Tags: [x, y], Self: *A1}。
func cyclicDocument() []events.Event {
	return document(
		events.MappingStart{Anchor: "A1", Implicit: true},
		str("Name"), str("a"),
		str("Tags"),
		events.SequenceStart{Implicit: true},
		str("x"), str("y"),
		events.SequenceEnd{},
		str("Self"), events.Alias{Anchor: "A1"},
		events.MappingEnd{},
	)
}

func emitAll(t *testing.T, e Emitter, evs []events.Event) error {
	t.Helper()
	for _, ev := range evs {
		if err := e.Emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, emitAll(t, r, cyclicDocument()))
	assert.Equal(t, []string{
		"+STR",
		"+DOC",
		"+MAP &A1",
		"=VAL <!!str> :Name",
		"=VAL <!!str> :a",
		"=VAL <!!str> :Tags",
		"+SEQ",
		"=VAL <!!str> :x",
		"=VAL <!!str> :y",
		"-SEQ",
		"=VAL <!!str> :Self",
		"=ALI *A1",
		"-MAP",
		"-DOC",
		"-STR",
	}, r.Lines())
	assert.Len(t, r.Events(), 15)
}

func TestInvalidStreams(t *testing.T) {
	cases := map[string][]events.Event{
		"unbalanced end": document(events.SequenceStart{}, events.MappingEnd{}),
		"unknown alias":  document(events.Alias{Anchor: "A9"}),
		"two roots":      document(str("a"), str("b")),
		"open collection": {
			events.StreamStart{}, events.DocumentStart{}, events.SequenceStart{}, events.DocumentEnd{},
		},
		"dangling key":     document(events.MappingStart{}, str("k"), events.MappingEnd{}),
		"outside document": {events.StreamStart{}, str("a")},
		"duplicate anchor": document(events.SequenceStart{Anchor: "A1"}, events.Scalar{Anchor: "A1", Value: "x"}, events.SequenceEnd{}),
		"empty document":   {events.StreamStart{}, events.DocumentStart{}, events.DocumentEnd{}},
		"double stream":    {events.StreamStart{}, events.StreamStart{}},
	}
	for name, evs := range cases {
		t.Run(name, func(t *testing.T) {
			err := emitAll(t, NewRecorder(), evs)
			assert.ErrorIs(t, err, merr.ErrInvalidEventStream)
		})
	}
}

func TestYAMLEmitterCycle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, emitAll(t, NewYAMLEmitter(&buf), cyclicDocument()))

	out := buf.String()
	assert.Contains(t, out, "&A1")
	assert.Contains(t, out, "Self: *A1")

	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	root := doc.Content[0]
	assert.Equal(t, yaml.MappingNode, root.Kind)
	assert.Equal(t, "A1", root.Anchor)
	require.Len(t, root.Content, 6)
	assert.Equal(t, "Name", root.Content[0].Value)
	assert.Equal(t, "a", root.Content[1].Value)
	assert.Equal(t, yaml.SequenceNode, root.Content[3].Kind)
	assert.Len(t, root.Content[3].Content, 2)
	assert.Equal(t, yaml.AliasNode, root.Content[5].Kind)
	assert.Equal(t, "A1", root.Content[5].Value)
}

func TestYAMLEmitterTags(t *testing.T) {
	var buf bytes.Buffer
	evs := document(
		events.MappingStart{Tag: "!example.com/zoo.Dog"},
		str("Age"), events.Scalar{Tag: IntTag, Value: "3", IsPlainImplicit: true},
		str("Code"), str("123"),
		str("Blob"), events.Scalar{Tag: BinaryTag, Value: "aGk="},
		events.MappingEnd{},
	)
	require.NoError(t, emitAll(t, NewYAMLEmitter(&buf), evs))

	out := buf.String()
	assert.Contains(t, out, "!example.com/zoo.Dog")
	assert.Contains(t, out, "Age: 3\n")
	// 形似数字的字符串需要加引号
	assert.Contains(t, out, `Code: "123"`)
	assert.Contains(t, out, "Blob: !!binary aGk=")
}

func TestYAMLEmitterFlow(t *testing.T) {
	var buf bytes.Buffer
	evs := document(
		events.MappingStart{Style: events.FlowMappingStyle},
		events.Scalar{Value: "a", Style: events.DoubleQuotedScalarStyle},
		events.SequenceStart{Style: events.FlowSequenceStyle},
		events.Scalar{Value: "1", Tag: IntTag, IsPlainImplicit: true},
		events.SequenceEnd{},
		events.MappingEnd{},
	)
	require.NoError(t, emitAll(t, NewYAMLEmitter(&buf, WithIndent(4)), evs))
	assert.Equal(t, "{\"a\": [1]}\n", buf.String())
}

func TestJSONEmitter(t *testing.T) {
	var buf bytes.Buffer
	evs := document(
		events.MappingStart{},
		str("name"), str("a"),
		str("n"), events.Scalar{Tag: IntTag, Value: "42"},
		str("ratio"), events.Scalar{Tag: FloatTag, Value: "0.5"},
		str("inf"), events.Scalar{Tag: FloatTag, Value: ".inf"},
		str("ok"), events.Scalar{Tag: BoolTag, Value: "true"},
		str("nothing"), events.Scalar{Tag: NullTag, Value: "null"},
		str("plain"), events.Scalar{Value: "7"},
		str("tags"),
		events.SequenceStart{}, str("x"), str("y"), events.SequenceEnd{},
		str("first"),
		events.MappingStart{Anchor: "A1"}, str("k"), str("v"), events.MappingEnd{},
		str("second"), events.Alias{Anchor: "A1"},
		events.MappingEnd{},
	)
	require.NoError(t, emitAll(t, NewJSONEmitter(&buf), evs))

	out := buf.Bytes()
	assert.True(t, jsoniter.ConfigCompatibleWithStandardLibrary.Valid(out))
	assert.JSONEq(t, `{
		"name": "a",
		"n": 42,
		"ratio": 0.5,
		"inf": ".inf",
		"ok": true,
		"nothing": null,
		"plain": 7,
		"tags": ["x", "y"],
		"first": {"k": "v"},
		"second": {"k": "v"}
	}`, string(out))
	assert.Equal(t, byte('\n'), out[len(out)-1])
}

func TestJSONEmitterIndent(t *testing.T) {
	var buf bytes.Buffer
	evs := document(events.MappingStart{}, str("a"), str("b"), events.MappingEnd{})
	require.NoError(t, emitAll(t, NewJSONEmitter(&buf, WithJSONIndent("", "  ")), evs))
	assert.Equal(t, "{\n  \"a\": \"b\"\n}\n", buf.String())
}

func TestJSONEmitterRejectsCycle(t *testing.T) {
	err := emitAll(t, NewJSONEmitter(&bytes.Buffer{}), cyclicDocument())
	assert.ErrorIs(t, err, merr.ErrUnsupportedEvent)
}

func TestJSONEmitterRejectsComplexKey(t *testing.T) {
	evs := document(events.MappingStart{}, events.SequenceStart{}, events.SequenceEnd{}, str("v"), events.MappingEnd{})
	err := emitAll(t, NewJSONEmitter(&bytes.Buffer{}), evs)
	assert.ErrorIs(t, err, merr.ErrUnsupportedEvent)
}

func TestReplay(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, emitAll(t, r, cyclicDocument()))

	var buf bytes.Buffer
	require.NoError(t, r.Replay(NewYAMLEmitter(&buf)))
	assert.Contains(t, buf.String(), "*A1")
}

func TestShortTag(t *testing.T) {
	assert.Equal(t, "!!int", ShortTag("tag:yaml.org,2002:int"))
	assert.Equal(t, "!custom", ShortTag("!custom"))
}
