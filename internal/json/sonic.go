// Package json 在 bytedance/sonic 之上提供与 encoding/json 兼容的入口。
package json

import (
	gojson "encoding/json"

	"github.com/bytedance/sonic"
)

var (
	json = sonic.ConfigStd
	// Marshal 与 encoding/json.Marshal 兼容。
	Marshal = json.Marshal
	// Unmarshal 与 encoding/json.Unmarshal 兼容。
	Unmarshal = json.Unmarshal
	// MarshalIndent 与 encoding/json.MarshalIndent 兼容。
	MarshalIndent = json.MarshalIndent
	// NewDecoder 与 encoding/json.NewDecoder 兼容。
	NewDecoder = json.NewDecoder
	// NewEncoder 与 encoding/json.NewEncoder 兼容。
	NewEncoder = json.NewEncoder
	// Valid 判断数据是否为合法 JSON。
	Valid = json.Valid
)

type (
	Number     = gojson.Number
	RawMessage = gojson.RawMessage
)
