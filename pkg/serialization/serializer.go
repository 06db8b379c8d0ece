// Package serialization 把任意 Go 对象图转换为文档事件流。
//
// 序列化分两遍进行：第一遍找出被多处引用的对象并分配锚点，
// 第二遍经过 转换器 -> 锚点 -> 事件输出 组成的访问链产生事件，
// 事件最终交给 emitter 渲染为 YAML 或 JSON 文本。
package serialization

import (
	"context"
	"io"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lk2023060901/graphdoc-go/pkg/emitter"
	"github.com/lk2023060901/graphdoc-go/pkg/events"
	"github.com/lk2023060901/graphdoc-go/pkg/log"
	"github.com/lk2023060901/graphdoc-go/pkg/metrics"
	"github.com/lk2023060901/graphdoc-go/pkg/serialization/introspect"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

const tracerName = "graphdoc/serialization"

// Serializer 可以被多个 goroutine 并发使用，每次调用都有独立的遍历状态。
type Serializer struct {
	log.Binder

	mu           sync.RWMutex
	converters   []TypeConverter
	td           introspect.TypeDescriptor
	maxRecursion int
}

func NewSerializer(opts ...Option) (*Serializer, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if c.maxRecursion <= 0 {
		return nil, merr.WrapErrInvalidConfiguration("maxRecursion", "must be positive")
	}
	if c.td == nil {
		c.td = introspect.NewReflectionTypeDescriptor()
	}
	s := &Serializer{
		converters:   c.converters,
		td:           c.td,
		maxRecursion: c.maxRecursion,
	}
	s.SetLogger(log.With(log.FieldComponent("serializer")))
	return s, nil
}

// RegisterTypeConverter 追加一个转换器，先注册的优先匹配。
func (s *Serializer) RegisterTypeConverter(c TypeConverter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.converters = append(s.converters, c)
	s.Logger().Debug("type converter registered", zap.Int("count", len(s.converters)))
}

func (s *Serializer) snapshot() converterList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(converterList(nil), s.converters...)
}

// Serialize 把 graph 以 YAML 文本写入 w。
func (s *Serializer) Serialize(ctx context.Context, w io.Writer, graph any, opts SerializationOptions) error {
	if w == nil {
		return merr.WrapErrInvalidConfiguration("writer", "must not be nil")
	}
	return s.SerializeTo(ctx, emitter.NewYAMLEmitter(w), graph, opts)
}

// SerializeTo 把 graph 的事件流写入 sink，声明类型取 graph 的动态类型。
func (s *Serializer) SerializeTo(ctx context.Context, sink emitter.Emitter, graph any, opts SerializationOptions) error {
	declared := anyType
	if graph != nil {
		declared = reflect.TypeOf(graph)
	}
	return s.SerializeAs(ctx, sink, graph, declared, opts)
}

// SerializeAs 以 declared 作为根节点的声明类型输出 graph，
// 往返模式下根节点的运行时类型与 declared 不同时会带上类型标签。
func (s *Serializer) SerializeAs(ctx context.Context, sink emitter.Emitter, graph any, declared reflect.Type, opts SerializationOptions) (err error) {
	if sink == nil {
		return merr.WrapErrInvalidConfiguration("emitter", "must not be nil")
	}
	if declared == nil {
		return merr.WrapErrInvalidConfiguration("declaredType", "must not be nil")
	}
	if graph != nil && !reflect.TypeOf(graph).AssignableTo(declared) {
		return merr.WrapErrInvalidConfiguration("declaredType",
			reflect.TypeOf(graph).String()+" is not assignable to "+declared.String())
	}

	mode := opts.mode()
	ctx, span := log.StartSpan(ctx, tracerName, "Serialize",
		trace.WithAttributes(attribute.String("options", opts.String())))
	defer span.End()
	logger := log.Ctx(ctx).With(log.FieldComponent("serializer"), log.FieldMode(mode))

	start := time.Now()
	defer func() {
		metrics.SerializationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.SerializationTotal.WithLabelValues(mode, metrics.FailLabel).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.RatedWarn(1, "serialize failed", zap.String("options", opts.String()), zap.Error(err))
			return
		}
		metrics.SerializationTotal.WithLabelValues(mode, metrics.SuccessLabel).Inc()
	}()

	converters := s.snapshot()
	strategy, err := s.newStrategy(opts, converters)
	if err != nil {
		return err
	}
	root := NewGraphNode(reflect.ValueOf(graph), declared)

	var aliases AliasProvider = NopAliasProvider{}
	if !opts.Has(DisableAliases) {
		assigner := NewAnchorAssigner(converters.accepts)
		if err := strategy.Traverse(root, assigner); err != nil {
			return err
		}
		metrics.SerializationAnchors.Add(float64(assigner.Len()))
		aliases = assigner
	}

	eventEmitter := s.newEventEmitter(sink, opts)
	visitor := NewCustomSerializationObjectGraphVisitor(
		NewAnchorAssigningObjectGraphVisitor(
			NewEmittingObjectGraphVisitor(eventEmitter), eventEmitter, aliases),
		converters, sink)

	if err := emitAll(sink, events.StreamStart{}, events.DocumentStart{Implicit: true}); err != nil {
		return err
	}
	if err := strategy.Traverse(root, visitor); err != nil {
		return err
	}
	if err := emitAll(sink, events.DocumentEnd{Implicit: true}, events.StreamEnd{}); err != nil {
		return err
	}
	logger.Debug("serialize done", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Serializer) newStrategy(opts SerializationOptions, converters converterList) (ObjectGraphTraversalStrategy, error) {
	if opts.Has(Roundtrip) {
		return NewRoundtripObjectGraphTraversalStrategy(s.td, s.maxRecursion, converters)
	}
	return NewFullObjectGraphTraversalStrategy(s.td, s.maxRecursion, opts.Has(EmitDefaults))
}

func (s *Serializer) newEventEmitter(sink emitter.Emitter, opts SerializationOptions) EventEmitter {
	writer := NewWriterEventEmitter(sink)
	if opts.Has(JSONCompatible) {
		return NewJSONEventEmitter(writer)
	}
	return NewTypeAssigningEventEmitter(writer)
}

func emitAll(sink emitter.Emitter, evs ...events.Event) error {
	for _, ev := range evs {
		if err := sink.Emit(ev); err != nil {
			return err
		}
	}
	return nil
}
