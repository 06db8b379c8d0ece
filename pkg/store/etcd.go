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

// Package store 把渲染后的文档发布到 etcd，每个文档占用 root 下的一个键。
package store

import (
	"context"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/lk2023060901/graphdoc-go/internal/json"
	"github.com/lk2023060901/graphdoc-go/pkg/log"
	"github.com/lk2023060901/graphdoc-go/pkg/metrics"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
	"github.com/lk2023060901/graphdoc-go/pkg/util/retry"
)

const (
	// DefaultRootPath 为文档在 etcd 中使用的默认根路径。
	DefaultRootPath = "graphdoc/documents"

	defaultDialTimeout    = 5 * time.Second
	defaultRequestTimeout = 3 * time.Second
	defaultRetryAttempts  = 5
)

// EtcdConfig 描述 etcd 连接与发布行为。
type EtcdConfig struct {
	Endpoints      []string      `mapstructure:"endpoints" toml:"endpoints" json:"endpoints"`
	RootPath       string        `mapstructure:"root-path" toml:"root-path" json:"root-path"`
	Username       string        `mapstructure:"username" toml:"username" json:"username"`
	Password       string        `mapstructure:"password" toml:"password" json:"password"`
	DialTimeout    time.Duration `mapstructure:"dial-timeout" toml:"dial-timeout" json:"dial-timeout"`
	RequestTimeout time.Duration `mapstructure:"request-timeout" toml:"request-timeout" json:"request-timeout"`
	RetryAttempts  uint          `mapstructure:"retry-attempts" toml:"retry-attempts" json:"retry-attempts"`
	// Compression 取值 "" 或 "zstd"，只影响写入，读取时按文档记录的编码还原。
	Compression     string `mapstructure:"compression" toml:"compression" json:"compression"`
	CompressMinSize int    `mapstructure:"compress-min-size" toml:"compress-min-size" json:"compress-min-size"`
}

// Enabled 报告是否配置了 etcd 地址。
func (c EtcdConfig) Enabled() bool {
	return len(c.Endpoints) > 0
}

func (c *EtcdConfig) fillDefaults() {
	if c.RootPath == "" {
		c.RootPath = DefaultRootPath
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.CompressMinSize <= 0 {
		c.CompressMinSize = defaultCompressMinSize
	}
}

// Document 是写入 etcd 的文档记录。
// Encoding 为空表示 Content 是原文，Get 与 List 返回前会还原；
// Revision 为 etcd 中该键最近一次修改的版本，只在读取时填充。
type Document struct {
	Name        string    `json:"name"`
	Format      string    `json:"format"`
	Content     string    `json:"content"`
	Encoding    string    `json:"encoding,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Revision    int64     `json:"-"`
}

// EtcdPublisher 通过 etcd KV 接口发布和读取文档。
type EtcdPublisher struct {
	client     *clientv3.Client
	kv         clientv3.KV
	cfg        EtcdConfig
	compressor Compressor
}

// NewEtcdPublisher 创建到 cfg.Endpoints 的 etcd 客户端。
func NewEtcdPublisher(cfg EtcdConfig) (*EtcdPublisher, error) {
	if !cfg.Enabled() {
		return nil, merr.WrapErrInvalidConfiguration("etcd.endpoints", "must not be empty")
	}
	cfg.fillDefaults()
	compressor, err := newCompressor(cfg.Compression)
	if err != nil {
		return nil, err
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Logger:      log.L().Named("etcd"),
	})
	if err != nil {
		if compressor != nil {
			compressor.Close()
		}
		return nil, errors.Wrap(err, "failed to create etcd client")
	}
	return &EtcdPublisher{client: client, kv: client, cfg: cfg, compressor: compressor}, nil
}

func newEtcdPublisherWithKV(kv clientv3.KV, cfg EtcdConfig) (*EtcdPublisher, error) {
	cfg.fillDefaults()
	compressor, err := newCompressor(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return &EtcdPublisher{kv: kv, cfg: cfg, compressor: compressor}, nil
}

func (p *EtcdPublisher) key(name string) string {
	return path.Join(p.cfg.RootPath, name)
}

// Publish 写入文档并返回写入后的 revision，可重试的错误按指数退避重试。
func (p *EtcdPublisher) Publish(ctx context.Context, doc Document) (int64, error) {
	if doc.Name == "" {
		return 0, merr.WrapErrParameterInvalidMsg("document name must not be empty")
	}
	if doc.PublishedAt.IsZero() {
		doc.PublishedAt = time.Now().UTC()
	}
	size := len(doc.Content)
	stored, err := encodeContent(p.compressor, p.cfg.CompressMinSize, doc)
	if err != nil {
		return 0, errors.Wrap(err, "failed to compress document")
	}
	value, err := json.Marshal(stored)
	if err != nil {
		return 0, err
	}

	key := p.key(doc.Name)
	var revision int64
	err = retry.Do(ctx, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
		resp, err := p.kv.Put(reqCtx, key, string(value))
		if err != nil {
			return merr.WrapErrPublishFailed(key, err)
		}
		revision = resp.Header.GetRevision()
		return nil
	}, retry.Attempts(p.cfg.RetryAttempts), retry.RetryErr(merr.IsRetryableErr))

	if err != nil {
		metrics.StorePublishTotal.WithLabelValues(metrics.FailLabel).Inc()
		log.Ctx(ctx).Warn("publish document failed", zap.String("key", key), zap.Error(err))
		return 0, err
	}
	metrics.StorePublishTotal.WithLabelValues(metrics.SuccessLabel).Inc()
	log.Ctx(ctx).Debug("document published",
		zap.String("key", key),
		zap.Int("size", size),
		zap.Int("stored", len(value)),
		zap.Int64("revision", revision))
	return revision, nil
}

// Get 读取指定名称的文档，不存在时返回 false。
func (p *EtcdPublisher) Get(ctx context.Context, name string) (Document, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	resp, err := p.kv.Get(reqCtx, p.key(name))
	if err != nil {
		return Document{}, false, err
	}
	if len(resp.Kvs) == 0 {
		return Document{}, false, nil
	}
	var doc Document
	if err := json.Unmarshal(resp.Kvs[0].Value, &doc); err != nil {
		return Document{}, false, err
	}
	doc, err = decodeContent(p.compressor, doc)
	if err != nil {
		return Document{}, false, err
	}
	doc.Revision = resp.Kvs[0].ModRevision
	return doc, true, nil
}

// List 按键的字典序返回 root 下的全部文档。
func (p *EtcdPublisher) List(ctx context.Context) ([]Document, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	resp, err := p.kv.Get(reqCtx, p.cfg.RootPath+"/", clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var doc Document
		if err := json.Unmarshal(kv.Value, &doc); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", kv.Key)
		}
		if doc, err = decodeContent(p.compressor, doc); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", kv.Key)
		}
		doc.Revision = kv.ModRevision
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close 关闭底层 etcd 客户端。
func (p *EtcdPublisher) Close() error {
	if p.compressor != nil {
		p.compressor.Close()
	}
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
