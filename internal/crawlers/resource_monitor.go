package crawlers

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源检查器
// 职责: 在启动浏览器前确认可用内存和CPU负载
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 采样函数,测试时可替换
	availableMemory func() (uint64, error)
	cpuUsage        func() (float64, error)
}

// ResourceMonitorConfig 资源检查配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	SafetyThreshold     int64 // 启动浏览器所需的最小剩余内存(字节)
	CPULoadThreshold    int   // CPU负载阈值(%),>=200视为禁用
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	AvailableMemory int64  // 扣除安全保留后的可用内存(字节)
	SafetyReserve   int64  // 安全保留内存(字节)
	SafetyThreshold int64  // 安全阈值(字节)
	MemoryPressure  string // 内存压力等级
}

// NewResourceMonitor 创建资源检查器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	return &ResourceMonitor{
		config:          config,
		availableMemory: systemAvailableMemory,
		cpuUsage:        systemCPUUsage,
	}
}

// systemAvailableMemory 使用gopsutil获取系统可用内存
func systemAvailableMemory() (uint64, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vmStat.Available, nil
}

// systemCPUUsage 所有核心的平均使用率(100毫秒采样)
func systemCPUUsage() (float64, error) {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("CPU使用率数据为空")
	}
	return percentages[0], nil
}

// usableMemory 扣除安全保留后的可用内存
func (rm *ResourceMonitor) usableMemory() (int64, error) {
	available, err := rm.availableMemory()
	if err != nil {
		return 0, err
	}
	return int64(available) - rm.config.SafetyReserveMemory, nil
}

// CheckResourceAvailability 检查当前资源是否允许启动浏览器
// 返回canStart(是否允许)和reason(不允许时的原因)
// 采样失败时不阻止启动,仅记录警告
func (rm *ResourceMonitor) CheckResourceAvailability() (canStart bool, reason string) {
	usable, err := rm.usableMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,跳过内存检查")
	} else if usable < rm.config.SafetyThreshold {
		usableMB := usable / (1024 * 1024)
		log.Warn().Msgf("可用内存不足(当前%dMB),无法启动浏览器", usableMB)
		return false, fmt.Sprintf("内存不足(当前%dMB)", usableMB)
	}

	if rm.config.CPULoadThreshold < 200 {
		usage, err := rm.cpuUsage()
		if err != nil {
			log.Warn().Err(err).Msg("获取CPU使用率失败,跳过CPU检查")
		} else if usage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", usage)
		}
	}

	return true, ""
}

// GetMemoryStatus 获取当前内存状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	usable, err := rm.usableMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败")
	}

	var pressure string
	usableMB := usable / (1024 * 1024)
	switch {
	case err != nil:
		pressure = "unknown"
	case usableMB < 200:
		pressure = "emergency"
	case usableMB < 300:
		pressure = "critical"
	case usableMB < 500:
		pressure = "warning"
	default:
		pressure = "normal"
	}

	return MemoryStatus{
		AvailableMemory: usable,
		SafetyReserve:   rm.config.SafetyReserveMemory,
		SafetyThreshold: rm.config.SafetyThreshold,
		MemoryPressure:  pressure,
	}
}
