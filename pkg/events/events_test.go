package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	cases := []struct {
		event Event
		want  string
	}{
		{StreamStart{}, "+STR"},
		{DocumentStart{Implicit: true}, "+DOC"},
		{DocumentStart{}, "+DOC ---"},
		{MappingStart{Anchor: "A1"}, "+MAP &A1"},
		{MappingStart{Tag: "!example.com/zoo.Dog", Style: FlowMappingStyle}, "+MAP {} <!example.com/zoo.Dog>"},
		{Scalar{Value: "a", Style: PlainScalarStyle}, "=VAL :a"},
		{Scalar{Value: "a\nb", Style: DoubleQuotedScalarStyle, Tag: "tag:yaml.org,2002:str"}, "=VAL <tag:yaml.org,2002:str> \"a\\nb"},
		{SequenceStart{Style: FlowSequenceStyle}, "+SEQ []"},
		{SequenceEnd{}, "-SEQ"},
		{Alias{Anchor: "A1"}, "=ALI *A1"},
		{MappingEnd{}, "-MAP"},
		{DocumentEnd{Implicit: true}, "-DOC"},
		{StreamEnd{}, "-STR"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.event.String())
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "mapping_start", MappingStart{}.Kind().String())
	assert.Equal(t, "alias", Alias{}.Kind().String())
	assert.Equal(t, "unknown", Kind(99).String())

	assert.True(t, IsStart(SequenceStart{}))
	assert.False(t, IsStart(Scalar{}))
	assert.True(t, IsEnd(MappingEnd{}))
	assert.False(t, IsEnd(Alias{}))
}
