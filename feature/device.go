package feature

import "github.com/rushteam/dealkit/core"

// 设备特征的固定槽位。设备向量不走散列：信号量少且语义稳定，
// 固定槽位比 hashing 更可解释。其余槽位保持为零。
const (
	slotDeviceClass = iota
	slotHour
	slotWeekday
	slotMonth
	slotNetworkSpeed
	slotScreenWidth
)

// 归一化基准：网速按 100Mbps 封顶，屏宽按 4K 宽度封顶。
const (
	maxNetworkSpeedMbps = 100.0
	maxScreenWidthPx    = 3840.0
)

// DeviceVector 把设备上下文编码进固定槽位（0..5），每个值 clamp 到 [0,1]。
// dev 为空时退化为零向量。
func (v *Vectorizer) DeviceVector(dev *core.DeviceContext) []float64 {
	out := make([]float64, v.Length)
	if dev == nil {
		return out
	}
	out[slotDeviceClass] = deviceClassValue(dev.Class)
	out[slotHour] = clamp01(float64(dev.Hour) / 23.0)
	out[slotWeekday] = clamp01(float64(dev.Weekday) / 6.0)
	out[slotMonth] = clamp01(float64(dev.Month) / 11.0)
	out[slotNetworkSpeed] = clamp01(dev.NetworkSpeed / maxNetworkSpeedMbps)
	out[slotScreenWidth] = clamp01(dev.ScreenWidth / maxScreenWidthPx)
	return out
}

// deviceClassValue 把设备类别编码为 [0,1] 内的档位值。
func deviceClassValue(class string) float64 {
	switch class {
	case "mobile":
		return 1.0 / 3
	case "tablet":
		return 2.0 / 3
	case "desktop":
		return 1.0
	default:
		return 0
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
