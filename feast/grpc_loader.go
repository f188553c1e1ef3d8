package feast

import (
	"context"
	"fmt"
	"strconv"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"
)

// GrpcLoader 是基于官方 Feast Go SDK 的 PreferenceLoader 实现。
//
// 约定：
//   - Features 是特征全名列表（"user_prefs:tech" 等），每个特征的
//     feature 段作为类目名，特征值作为权重
//   - EntityKey 是实体键名，默认 "user_id"
type GrpcLoader struct {
	client *feastsdk.GrpcClient

	Project   string
	Features  []string
	EntityKey string
}

// NewGrpcLoader 创建 Feast gRPC 偏好加载器。
func NewGrpcLoader(host string, port int, project string, features []string) (*GrpcLoader, error) {
	if port == 0 {
		port = 6565 // Feast Feature Server 默认 gRPC 端口
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}
	return &GrpcLoader{
		client:    client,
		Project:   project,
		Features:  features,
		EntityKey: "user_id",
	}, nil
}

var _ PreferenceLoader = (*GrpcLoader)(nil)

// UserInterests 拉取用户的类目偏好权重。
// 特征缺失或值不可转数值的条目被跳过；查无此人返回空 map。
func (l *GrpcLoader) UserInterests(ctx context.Context, userID string) (map[string]float64, error) {
	if userID == "" || len(l.Features) == 0 {
		return map[string]float64{}, nil
	}

	entityKey := l.EntityKey
	if entityKey == "" {
		entityKey = "user_id"
	}

	req := &feastsdk.OnlineFeaturesRequest{
		Features: l.Features,
		Entities: []feastsdk.Row{
			{entityKey: feastsdk.StrVal(userID)},
		},
		Project: l.Project,
	}

	resp, err := l.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return map[string]float64{}, nil
	}

	out := make(map[string]float64, len(l.Features))
	row := rows[0]
	for _, name := range l.Features {
		val, ok := row[name]
		if !ok || val == nil {
			continue
		}
		if w, ok := valueToWeight(val); ok && w > 0 {
			out[featureCategory(name)] = w
		}
	}
	return out, nil
}

// valueToWeight 把 SDK 的 protobuf Value 转为权重；不可转数值的类型丢弃。
func valueToWeight(v *feasttypes.Value) (float64, bool) {
	switch x := v.GetVal().(type) {
	case *feasttypes.Value_DoubleVal:
		return x.DoubleVal, true
	case *feasttypes.Value_FloatVal:
		return float64(x.FloatVal), true
	case *feasttypes.Value_Int64Val:
		return float64(x.Int64Val), true
	case *feasttypes.Value_Int32Val:
		return float64(x.Int32Val), true
	case *feasttypes.Value_BoolVal:
		if x.BoolVal {
			return 1, true
		}
		return 0, true
	case *feasttypes.Value_StringVal:
		if f, err := strconv.ParseFloat(x.StringVal, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Close 关闭客户端连接。官方 SDK 的连接由 gRPC 库管理，这里只置空引用。
func (l *GrpcLoader) Close() error {
	l.client = nil
	return nil
}
