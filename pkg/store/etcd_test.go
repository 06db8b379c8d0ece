package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/etcdserverpb"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/lk2023060901/graphdoc-go/pkg/metrics"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

// fakeKV 在内存中模拟 etcd 的 Put/Get，failures 控制接下来失败的 Put 次数。
type fakeKV struct {
	clientv3.KV

	mu       sync.Mutex
	data     map[string]*mvccpb.KeyValue
	rev      int64
	failures int
	puts     int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]*mvccpb.KeyValue)}
}

func (f *fakeKV) Put(_ context.Context, key, val string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("etcdserver: request timed out")
	}
	f.rev++
	f.data[key] = &mvccpb.KeyValue{Key: []byte(key), Value: []byte(val), ModRevision: f.rev}
	return &clientv3.PutResponse{Header: &etcdserverpb.ResponseHeader{Revision: f.rev}}, nil
}

func (f *fakeKV) Get(_ context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := string(clientv3.OpGet(key, opts...).RangeBytes())

	var keys []string
	for k := range f.data {
		if k == key || (end != "" && k >= key && k < end) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	resp := &clientv3.GetResponse{Header: &etcdserverpb.ResponseHeader{Revision: f.rev}}
	for _, k := range keys {
		resp.Kvs = append(resp.Kvs, f.data[k])
	}
	resp.Count = int64(len(resp.Kvs))
	return resp, nil
}

func TestPublishAndRead(t *testing.T) {
	kv := newFakeKV()
	p, err := newEtcdPublisherWithKV(kv, EtcdConfig{RootPath: "docs"})
	require.NoError(t, err)
	ctx := context.Background()

	rev, err := p.Publish(ctx, Document{Name: "b", Format: "yaml", Content: "b: 1\n"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
	_, err = p.Publish(ctx, Document{Name: "a", Format: "json", Content: `{"a":1}`})
	require.NoError(t, err)
	assert.Contains(t, kv.data, "docs/a")

	doc, ok, err := p.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b: 1\n", doc.Content)
	assert.Equal(t, "yaml", doc.Format)
	assert.Equal(t, int64(1), doc.Revision)
	assert.False(t, doc.PublishedAt.IsZero())

	_, ok, err = p.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	docs, err := p.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].Name)
	assert.Equal(t, "b", docs[1].Name)
	assert.NoError(t, p.Close())
}

func TestPublishRetries(t *testing.T) {
	kv := newFakeKV()
	kv.failures = 1
	p, err := newEtcdPublisherWithKV(kv, EtcdConfig{RetryAttempts: 3})
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.StorePublishTotal.WithLabelValues(metrics.SuccessLabel))
	_, err = p.Publish(context.Background(), Document{Name: "doc", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, kv.puts)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.StorePublishTotal.WithLabelValues(metrics.SuccessLabel)))
	assert.True(t, strings.HasPrefix(p.key("doc"), DefaultRootPath))
}

func TestPublishFailure(t *testing.T) {
	kv := newFakeKV()
	kv.failures = 10
	p, err := newEtcdPublisherWithKV(kv, EtcdConfig{RetryAttempts: 2, RequestTimeout: time.Second})
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), Document{Name: "doc", Content: "x"})
	assert.ErrorIs(t, err, merr.ErrPublishFailed)
	assert.Equal(t, 2, kv.puts)

	_, err = p.Publish(context.Background(), Document{Content: "x"})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestNewEtcdPublisherRequiresEndpoints(t *testing.T) {
	_, err := NewEtcdPublisher(EtcdConfig{})
	assert.ErrorIs(t, err, merr.ErrInvalidConfiguration)
	assert.False(t, EtcdConfig{}.Enabled())
}

func TestPublishCompressed(t *testing.T) {
	kv := newFakeKV()
	p, err := newEtcdPublisherWithKV(kv, EtcdConfig{Compression: CompressionZstd, CompressMinSize: 16})
	require.NoError(t, err)
	defer p.Close()
	ctx := context.Background()

	large := strings.Repeat("key: value\n", 200)
	_, err = p.Publish(ctx, Document{Name: "large", Format: "yaml", Content: large})
	require.NoError(t, err)
	_, err = p.Publish(ctx, Document{Name: "small", Format: "yaml", Content: "a: 1\n"})
	require.NoError(t, err)

	raw := string(kv.data[p.key("large")].Value)
	assert.Contains(t, raw, encodingZstd)
	assert.Less(t, len(raw), len(large))
	assert.NotContains(t, string(kv.data[p.key("small")].Value), encodingZstd)

	doc, ok, err := p.Get(ctx, "large")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, large, doc.Content)
	assert.Empty(t, doc.Encoding)

	// 未开启压缩的读取端同样可以还原。
	reader, err := newEtcdPublisherWithKV(kv, EtcdConfig{})
	require.NoError(t, err)
	docs, err := reader.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, large, docs[0].Content)
	assert.Equal(t, "a: 1\n", docs[1].Content)
}

func TestUnknownCompression(t *testing.T) {
	_, err := newEtcdPublisherWithKV(newFakeKV(), EtcdConfig{Compression: "lz4"})
	assert.ErrorIs(t, err, merr.ErrInvalidConfiguration)

	_, err = decodeContent(nil, Document{Encoding: "gzip"})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}
