// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	serializationSubsystem = "serialization"
	storeSubsystem         = "store"
)

var (
	SerializationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: graphdocNamespace,
			Subsystem: serializationSubsystem,
			Name:      "total",
			Help:      "序列化调用次数，按模式与结果划分",
		}, []string{modeLabelName, resultLabelName})

	SerializationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: graphdocNamespace,
			Subsystem: serializationSubsystem,
			Name:      "duration_seconds",
			Help:      "单次序列化耗时",
			Buckets:   buckets,
		}, []string{modeLabelName})

	SerializationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: graphdocNamespace,
			Subsystem: serializationSubsystem,
			Name:      "events_total",
			Help:      "写入 emitter 的事件数量，按事件类型划分",
		}, []string{kindLabelName})

	SerializationAnchors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: graphdocNamespace,
			Subsystem: serializationSubsystem,
			Name:      "anchors_total",
			Help:      "为共享引用分配的锚点数量",
		})

	StorePublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: graphdocNamespace,
			Subsystem: storeSubsystem,
			Name:      "publish_total",
			Help:      "文档发布到 etcd 的次数，按结果划分",
		}, []string{resultLabelName})
)

// RegisterSerializationMetrics 注册序列化相关指标。
func RegisterSerializationMetrics(r prometheus.Registerer) {
	r.MustRegister(SerializationTotal)
	r.MustRegister(SerializationDuration)
	r.MustRegister(SerializationEvents)
	r.MustRegister(SerializationAnchors)
}

// RegisterStoreMetrics 注册文档发布相关指标。
func RegisterStoreMetrics(r prometheus.Registerer) {
	r.MustRegister(StorePublishTotal)
}
