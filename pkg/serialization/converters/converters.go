// Package converters 提供常用第三方类型的转换器，每个类型输出为一个标量。
package converters

import (
	"time"

	"github.com/blang/semver/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/lk2023060901/graphdoc-go/pkg/emitter"
	"github.com/lk2023060901/graphdoc-go/pkg/events"
	"github.com/lk2023060901/graphdoc-go/pkg/serialization"
)

// Defaults 返回本包提供的全部转换器。
func Defaults() []serialization.TypeConverter {
	return []serialization.TypeConverter{
		Timestamp(),
		Duration(),
		SemVer(),
		Quantity(),
		UUID(),
	}
}

// Timestamp 以 RFC 3339 格式输出 *timestamppb.Timestamp。
func Timestamp() serialization.TypeConverter {
	return serialization.ForType(func(e emitter.Emitter, ts *timestamppb.Timestamp) error {
		if ts == nil {
			return writeNull(e)
		}
		return e.Emit(events.Scalar{
			Tag:             emitter.TimestampTag,
			Value:           ts.AsTime().Format(time.RFC3339Nano),
			IsPlainImplicit: true,
		})
	})
}

// Duration 以 Go 的时长格式输出 *durationpb.Duration，例如 "1m30s"。
func Duration() serialization.TypeConverter {
	return serialization.ForType(func(e emitter.Emitter, d *durationpb.Duration) error {
		if d == nil {
			return writeNull(e)
		}
		return writeString(e, d.AsDuration().String())
	})
}

func SemVer() serialization.TypeConverter {
	return serialization.ForType(func(e emitter.Emitter, v semver.Version) error {
		return writeString(e, v.String())
	})
}

// Quantity 输出 resource.Quantity 的规范形式，例如 "500m"、"1Gi"。
func Quantity() serialization.TypeConverter {
	return serialization.ForType(func(e emitter.Emitter, q resource.Quantity) error {
		return writeString(e, q.String())
	})
}

func UUID() serialization.TypeConverter {
	return serialization.ForType(func(e emitter.Emitter, id uuid.UUID) error {
		return writeString(e, id.String())
	})
}

func writeString(e emitter.Emitter, s string) error {
	return e.Emit(events.Scalar{
		Tag:              emitter.StrTag,
		Value:            s,
		IsPlainImplicit:  true,
		IsQuotedImplicit: true,
	})
}

func writeNull(e emitter.Emitter) error {
	return e.Emit(events.Scalar{Tag: emitter.NullTag, Value: "null", IsPlainImplicit: true})
}
