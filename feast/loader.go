// Package feast 提供基于 Feast Feature Store 的用户偏好加载。
//
// 引擎侧的用法是可选增强：画像里没有兴趣权重时，从在线特征存储拉取
// 用户的类目偏好，补进图通路的兴趣信号。拉取失败降级为空偏好，
// 不阻塞推荐链路。
package feast

import (
	"context"
	"strings"
)

// PreferenceLoader 是用户偏好加载的领域接口。
//
// 设计原则：
//   - 领域层定义接口，基础设施层（本包的 GrpcLoader）实现
//   - 返回 map[类目]权重；查无此人返回空 map，不报错
type PreferenceLoader interface {
	// UserInterests 拉取用户的类目偏好权重
	UserInterests(ctx context.Context, userID string) (map[string]float64, error)

	// Close 关闭客户端连接
	Close() error
}

// featureCategory 取特征全名 "view:feature" 的 feature 段作为类目名。
func featureCategory(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}
