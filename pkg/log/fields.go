package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameMode      = "mode"
	FieldNameGoType    = "goType"
)

func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldMode 记录序列化模式，例如 full 或 roundtrip。
func FieldMode(mode string) zap.Field {
	return zap.String(FieldNameMode, mode)
}

func FieldGoType(typeName string) zap.Field {
	return zap.String(FieldNameGoType, typeName)
}
