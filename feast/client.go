package feast

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Client 是 Feast 在线特征库的客户端接口。
//
// 推荐子系统只依赖在线特征：打分前批量拉取文章的实时参与度统计
// （浏览量、平均完成率）。接口定义在这里，gRPC 实现见 grpc_client.go，
// 测试可以注入假实现。
//
// 参考：https://github.com/feast-dev/feast
type Client interface {
	// GetOnlineFeatures 批量获取在线特征。
	//
	// 参数：
	//   - Features: 特征名称列表，例如 ["article_stats:views"]
	//   - EntityRows: 实体行，例如 [{"article_id": 1001}]
	//
	// 返回顺序与 EntityRows 一一对应。
	GetOnlineFeatures(ctx context.Context, req *OnlineFeaturesRequest) (*OnlineFeaturesResponse, error)

	// Close 关闭客户端连接。
	Close() error
}

// OnlineFeaturesRequest 在线特征请求。
type OnlineFeaturesRequest struct {
	// Features 特征名称列表，例如 ["article_stats:views", "article_stats:avg_completion_rate"]
	Features []string

	// EntityRows 实体行，例如 [{"article_id": 1001}, {"article_id": 1002}]
	EntityRows []map[string]interface{}

	// Project 项目名称（可选，为空用客户端默认）
	Project string
}

// OnlineFeaturesResponse 在线特征响应。
type OnlineFeaturesResponse struct {
	// Vectors 特征向量列表，每个元素对应一个实体行
	Vectors []FeatureVector
}

// FeatureVector 单个实体的特征向量。
type FeatureVector struct {
	// Values 特征值，key 为特征名称
	Values map[string]interface{}

	// EntityRow 对应的实体行
	EntityRow map[string]interface{}
}

// ClientOption Feast 客户端配置选项。
type ClientOption func(*ClientConfig)

// ClientConfig Feast 客户端配置。
type ClientConfig struct {
	// Endpoint 服务端点
	Endpoint string

	// Project 项目名称
	Project string

	// Timeout 超时时间
	Timeout time.Duration

	// StaticToken gRPC 静态 Token 认证（可选）
	StaticToken string
}

// WithTimeout 配置选项：设置超时时间。
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithStaticToken 配置选项：设置静态 Token 认证。
func WithStaticToken(token string) ClientOption {
	return func(c *ClientConfig) {
		c.StaticToken = token
	}
}

// ParseEndpoint 解析端点地址，返回 host 和 port；没有端口时 port 为 0。
func ParseEndpoint(endpoint string) (string, int) {
	endpoint = strings.TrimPrefix(endpoint, "grpc://")

	parts := strings.Split(endpoint, ":")
	if len(parts) == 2 {
		port, err := strconv.Atoi(parts[1])
		if err == nil {
			return parts[0], port
		}
	}
	return endpoint, 0
}
