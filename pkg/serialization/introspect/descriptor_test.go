package introspect

import (
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Base struct {
	ID    int
	Label string
}

type inner struct {
	Hidden string
}

type widget struct {
	Base
	*inner
	Name     string `yaml:"name"`
	Label    string
	Skipped  int    `yaml:"-"`
	Computed string `yaml:",readonly"`
	Count    int    `yaml:"count,always"`
	secret   string
}

type opaque struct {
	Public  string
	private int
}

type embedsOpaque struct {
	opaque
	Extra string
}

type ignoresPrivate struct {
	Public  string
	private int `yaml:"-"`
}

type Meta struct {
	Owner string
}

type document struct {
	Meta  `yaml:",inline"`
	Title string
}

type stamped struct {
	time.Time
	Note string
}

type priced struct {
	*big.Int
	Label string
}

type scheduled struct {
	When time.Time `yaml:",inline"`
	Slot int
}

func names(props []PropertyDescriptor) []string {
	out := make([]string, 0, len(props))
	for _, p := range props {
		out = append(out, p.Name())
	}
	return out
}

func TestProperties(t *testing.T) {
	d := NewReflectionTypeDescriptor()
	props := d.Properties(reflect.TypeOf(widget{}), false)
	// Base.Label 被外层同名字段 Label 覆盖
	assert.Equal(t, []string{"ID", "Hidden", "name", "Label", "Computed", "count"}, names(props))

	writable := d.Properties(reflect.TypeOf(&widget{}), true)
	assert.Equal(t, []string{"ID", "Hidden", "name", "Label", "count"}, names(writable))

	byName := make(map[string]PropertyDescriptor)
	for _, p := range props {
		byName[p.Name()] = p
	}
	assert.True(t, byName["count"].AlwaysEmit())
	assert.False(t, byName["name"].AlwaysEmit())
	assert.False(t, byName["Computed"].CanWrite())
	assert.Equal(t, reflect.TypeOf(0), byName["ID"].Type())
	assert.Nil(t, byName["ID"].SerializeAs())

	assert.Nil(t, d.Properties(reflect.TypeOf(0), false))
}

func TestPropertyValue(t *testing.T) {
	d := NewReflectionTypeDescriptor()
	w := &widget{Base: Base{ID: 7}, Name: "w"}
	props := d.Properties(reflect.TypeOf(w), false)

	byName := make(map[string]PropertyDescriptor)
	for _, p := range props {
		byName[p.Name()] = p
	}

	v, ok := byName["ID"].Value(reflect.ValueOf(w))
	require.True(t, ok)
	assert.Equal(t, 7, v.Interface())

	v, ok = byName["name"].Value(reflect.ValueOf(*w))
	require.True(t, ok)
	assert.Equal(t, "w", v.Interface())

	// 经过 nil 的嵌入指针
	_, ok = byName["Hidden"].Value(reflect.ValueOf(w))
	assert.False(t, ok)

	w.inner = &inner{Hidden: "h"}
	v, ok = byName["Hidden"].Value(reflect.ValueOf(w))
	require.True(t, ok)
	assert.Equal(t, "h", v.Interface())

	_, ok = byName["ID"].Value(reflect.ValueOf((*widget)(nil)))
	assert.False(t, ok)
}

func TestInline(t *testing.T) {
	d := NewReflectionTypeDescriptor()
	assert.Equal(t, []string{"Owner", "Title"}, names(d.Properties(reflect.TypeOf(document{}), false)))
}

func TestEmbeddedScalarStructs(t *testing.T) {
	d := NewReflectionTypeDescriptor()

	props := d.Properties(reflect.TypeOf(stamped{}), false)
	require.Equal(t, []string{"Time", "Note"}, names(props))
	assert.Equal(t, reflect.TypeOf(time.Time{}), props[0].Type())

	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	v, ok := props[0].Value(reflect.ValueOf(stamped{Time: when}))
	require.True(t, ok)
	assert.Equal(t, when, v.Interface())

	props = d.Properties(reflect.TypeOf(priced{}), false)
	require.Equal(t, []string{"Int", "Label"}, names(props))
	assert.Equal(t, reflect.TypeOf(&big.Int{}), props[0].Type())

	assert.Equal(t, []string{"When", "Slot"}, names(d.Properties(reflect.TypeOf(scheduled{}), false)))

	assert.True(t, d.Reconstructible(reflect.TypeOf(stamped{})))
	assert.True(t, d.Reconstructible(reflect.TypeOf(priced{})))
}

func TestReconstructible(t *testing.T) {
	d := NewReflectionTypeDescriptor()
	assert.True(t, d.Reconstructible(reflect.TypeOf(Base{})))
	assert.True(t, d.Reconstructible(reflect.TypeOf(&document{})))
	assert.True(t, d.Reconstructible(reflect.TypeOf(ignoresPrivate{})))
	assert.False(t, d.Reconstructible(reflect.TypeOf(opaque{})))
	assert.False(t, d.Reconstructible(reflect.TypeOf(embedsOpaque{})))
	assert.False(t, d.Reconstructible(reflect.TypeOf(widget{})))
	assert.True(t, d.Reconstructible(reflect.TypeOf([]int{})))
}

func TestOverrides(t *testing.T) {
	o := NewOverrides()
	d := NewReflectionTypeDescriptor(WithOverrides(o))

	docType := reflect.TypeOf(document{})
	assert.Equal(t, []string{"Owner", "Title"}, names(d.Properties(docType, false)))

	o.Alias(docType, "Title", "title").
		AlwaysEmit(docType, "Title").
		Ignore(reflect.TypeOf(Meta{}), "Owner")

	// 覆盖变更后缓存失效
	props := d.Properties(docType, false)
	require.Equal(t, []string{"title"}, names(props))
	assert.True(t, props[0].AlwaysEmit())

	o.ReadOnly(docType, "Title")
	assert.Empty(t, d.Properties(docType, true))

	stringer := reflect.TypeOf((*interface{ String() string })(nil)).Elem()
	o.SerializeAs(reflect.PointerTo(docType), "Title", stringer)
	assert.Equal(t, stringer, d.Properties(docType, false)[0].SerializeAs())

	o.Ignore(reflect.TypeOf(opaque{}), "private")
	assert.True(t, d.Reconstructible(reflect.TypeOf(opaque{})))
}

func TestTagName(t *testing.T) {
	type tagged struct {
		Value string `json:"value" yaml:"v"`
	}
	d := NewReflectionTypeDescriptor(WithTagName("json"))
	assert.Equal(t, []string{"value"}, names(d.Properties(reflect.TypeOf(tagged{}), false)))
}
