package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lk2023060901/graphdoc-go/internal/json"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

// decodeFile 按扩展名把输入文件解码为通用的 map/slice/标量对象图。
func decodeFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merr.WrapErrIoFailed(path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, merr.WrapErrParameterInvalidMsg("failed to decode %s: %v", path, err)
		}
		return normalizeNumbers(v), nil
	case ".toml":
		var v map[string]any
		if err := toml.Unmarshal(data, &v); err != nil {
			return nil, merr.WrapErrParameterInvalidMsg("failed to decode %s: %v", path, err)
		}
		return v, nil
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, merr.WrapErrParameterInvalidMsg("failed to decode %s: %v", path, err)
		}
		return v, nil
	default:
		return nil, merr.WrapErrParameterInvalidMsg("unsupported input format %q", ext)
	}
}

// normalizeNumbers 把 json.Number 还原为 int64 或 float64，使整数不会以浮点形式输出。
func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		for k, item := range v {
			v[k] = normalizeNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	}
	return v
}
