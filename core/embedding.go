package core

import (
	"encoding/json"
	"math"
)

// MinEmbeddingDim 是可索引 embedding 的最小维度。
// 上游模型偶尔会写入截断/残缺的向量，低于该维度的一律视为不可用。
const MinEmbeddingDim = 10

// ParseEmbedding 解析序列化的 embedding（JSON 浮点数组）。
// 统一的解析入口：格式错误返回 DomainError，由调用方决定跳过还是上报，
// 避免解析逻辑散落在各处。
func ParseEmbedding(raw []byte) ([]float64, error) {
	if len(raw) == 0 {
		return nil, NewDomainError(ModuleIndex, ErrorCodeInvalidInput, "embedding: empty payload")
	}
	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, NewDomainError(ModuleIndex, ErrorCodeInvalidInput, "embedding: malformed vector: "+err.Error())
	}
	if len(vec) == 0 {
		return nil, NewDomainError(ModuleIndex, ErrorCodeInvalidInput, "embedding: empty vector")
	}
	for _, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, NewDomainError(ModuleIndex, ErrorCodeInvalidInput, "embedding: non-finite component")
		}
	}
	return vec, nil
}

// ValidEmbedding 判断向量是否可用于索引（非空且维度达标）。
func ValidEmbedding(v []float64) bool {
	return len(v) >= MinEmbeddingDim
}

// L2Normalize 返回 v 的 L2 归一化副本；零向量返回 nil。
func L2Normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// InnerProduct 计算内积；长度不一致返回 0。
// 归一化向量的内积等价于余弦相似度。
func InnerProduct(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
