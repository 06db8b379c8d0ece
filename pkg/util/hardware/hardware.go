package hardware

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/lk2023060901/graphdoc-go/pkg/log"
)

// GetCPUNum 返回可用的 CPU 核数，取 GOMAXPROCS 与逻辑核数中的较小者。
func GetCPUNum() int {
	procs := runtime.GOMAXPROCS(0)
	cur, err := cpu.Counts(true)
	if err != nil || cur <= 0 {
		log.Warn("failed to get cpu counts, fallback to GOMAXPROCS", zap.Error(err), zap.Int("gomaxprocs", procs))
		return procs
	}
	if procs < cur {
		return procs
	}
	return cur
}
