// Package feature 把异构信号（文本、问卷、地理、设备）映射为定长数值向量。
//
// 核心是 feature hashing：token 经 32 位多项式散列落入固定槽位，用碰撞
// 噪声换取固定维度。同一输入永远得到同一向量，便于离线/在线一致性。
package feature

import (
	"regexp"
	"strings"

	"github.com/rushteam/dealkit/core"
)

// nonWord 按非单词字符切分 token（与 \w 互补：[0-9A-Za-z_] 之外的连续串）。
var nonWord = regexp.MustCompile(`\W+`)

// Vectorizer 是文本特征向量化器。
// 零值不可用，请通过 NewVectorizer 创建。
type Vectorizer struct {
	// Length 是输出向量维度，全链路必须一致
	Length int
}

// NewVectorizer 创建向量化器；length <= 0 时使用默认维度。
func NewVectorizer(length int) *Vectorizer {
	if length <= 0 {
		length = core.DefaultVectorLen
	}
	return &Vectorizer{Length: length}
}

// Vectorize 把文本散列为定长向量。
//
// 算法：小写化 -> 非单词字符切分 -> 每个 token 做 32 位有符号多项式散列
// （hash = hash*31 + 字符码，按 32 位回绕）-> abs(hash) mod Length 槽位 +1。
// 确定性：相同文本永远得到相同向量。空文本得到零向量，不做归一化。
func (v *Vectorizer) Vectorize(text string) []float64 {
	out := make([]float64, v.Length)
	text = strings.ToLower(text)
	for _, tok := range nonWord.Split(text, -1) {
		if tok == "" {
			continue
		}
		out[v.slot(tok)]++
	}
	return out
}

// slot 计算 token 的槽位下标。
func (v *Vectorizer) slot(token string) int {
	var h int32
	for _, r := range token {
		h = h*31 + int32(r)
	}
	// abs 在 int64 上做，避免 math.MinInt32 取负仍为负
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return int(n % int64(v.Length))
}

// SurveyVector 把问卷回答向量化：每个 "问题 回答" 对各自向量化后逐槽求和。
// 求和可交换，map 遍历顺序不影响结果。空问卷得到零向量。
func (v *Vectorizer) SurveyVector(answers map[string]string) []float64 {
	out := make([]float64, v.Length)
	for question, answer := range answers {
		pair := v.Vectorize(question + " " + answer)
		for i, val := range pair {
			out[i] += val
		}
	}
	return out
}

// GeoVector 把地理信号向量化为 "<countryCode> <ip>" 的散列向量。
// geo 为空时退化为零向量：缺数据降级，不阻塞。
func (v *Vectorizer) GeoVector(geo *core.Geolocation) []float64 {
	if geo == nil {
		return make([]float64, v.Length)
	}
	return v.Vectorize(geo.CountryCode + " " + geo.IP)
}
