package store

import (
	"encoding/base64"

	"github.com/klauspost/compress/zstd"

	"github.com/lk2023060901/graphdoc-go/pkg/util/hardware"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

const (
	// CompressionNone 表示文档内容原样写入。
	CompressionNone = ""
	// CompressionZstd 表示超过阈值的文档内容以 zstd 压缩后再 base64 编码写入。
	CompressionZstd = "zstd"

	encodingZstd = "zstd+base64"

	defaultCompressMinSize = 1024
)

// Compressor 对整块数据做单次压缩与解压。
type Compressor interface {
	// Compress 将 src 压缩到 dst 的底层空间中并返回压缩结果。
	Compress(dst, src []byte) ([]byte, error)
	// Decompress 是 Compress 的逆操作。
	Decompress(dst, src []byte) ([]byte, error)
	Close()
}

// zstdCompressor 持有独立的 encoder/decoder，不与其他调用方共享。
type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ Compressor = (*zstdCompressor)(nil)

func newZstdCompressor() (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithZeroFrames(true),
		zstd.WithEncoderConcurrency(hardware.GetCPUNum()),
	)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (c *zstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	if c.enc == nil {
		return nil, zstd.ErrEncoderClosed
	}
	return c.enc.EncodeAll(src, dst[:0]), nil
}

func (c *zstdCompressor) Decompress(dst, src []byte) ([]byte, error) {
	if c.dec == nil {
		return nil, zstd.ErrDecoderClosed
	}
	return c.dec.DecodeAll(src, dst[:0])
}

func (c *zstdCompressor) Close() {
	if c.enc != nil {
		_ = c.enc.Close()
		c.enc = nil
	}
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
}

func newCompressor(name string) (Compressor, error) {
	switch name {
	case CompressionNone:
		return nil, nil
	case CompressionZstd:
		return newZstdCompressor()
	default:
		return nil, merr.WrapErrInvalidConfiguration("etcd.compression", "unknown compression "+name)
	}
}

// encodeContent 在内容达到阈值时压缩并标记 Encoding，否则原样返回。
func encodeContent(c Compressor, minSize int, doc Document) (Document, error) {
	if c == nil || len(doc.Content) < minSize {
		return doc, nil
	}
	packet, err := c.Compress(nil, []byte(doc.Content))
	if err != nil {
		return doc, err
	}
	doc.Content = base64.StdEncoding.EncodeToString(packet)
	doc.Encoding = encodingZstd
	return doc, nil
}

// decodeContent 还原 encodeContent 写入的内容，读取端不要求开启压缩。
func decodeContent(c Compressor, doc Document) (Document, error) {
	switch doc.Encoding {
	case "":
		return doc, nil
	case encodingZstd:
	default:
		return doc, merr.WrapErrParameterInvalidMsg("unknown document encoding %q", doc.Encoding)
	}

	packet, err := base64.StdEncoding.DecodeString(doc.Content)
	if err != nil {
		return doc, err
	}
	if c == nil {
		zc, err := newZstdCompressor()
		if err != nil {
			return doc, err
		}
		defer zc.Close()
		c = zc
	}
	plain, err := c.Decompress(nil, packet)
	if err != nil {
		return doc, err
	}
	doc.Content = string(plain)
	doc.Encoding = ""
	return doc, nil
}
