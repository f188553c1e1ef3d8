package core

// 引擎默认参数。来源：线上个性化引擎的经验值。
const (
	// DefaultVectorLen 是全链路统一的向量维度
	DefaultVectorLen = 1000

	// DefaultForestSize 是随机投影森林的树数量
	DefaultForestSize = 10

	// DefaultMaxLeafSize 是森林叶子节点的最大容量
	DefaultMaxLeafSize = 50

	// DefaultSimilarThreshold 是 connect similar 的余弦相似度阈值
	DefaultSimilarThreshold = 0.8
)

// EngineConfig 是引擎级配置（支持 YAML）。
// 零值字段在 Normalize 时回填默认值。
type EngineConfig struct {
	VectorLen        int     `yaml:"vector_len" json:"vector_len"`
	ForestSize       int     `yaml:"forest_size" json:"forest_size"`
	MaxLeafSize      int     `yaml:"max_leaf_size" json:"max_leaf_size"`
	SimilarThreshold float64 `yaml:"similar_threshold" json:"similar_threshold"`

	// TopN 是图通路默认返回条数
	TopN int `yaml:"topn" json:"topn"`

	// Interaction 各类交互的打分权重与衰减窗口（天）
	Interaction InteractionWeights `yaml:"interaction" json:"interaction"`
}

// InteractionWeights 是交互打分的权重配置。
type InteractionWeights struct {
	View      float64 `yaml:"view" json:"view"`
	Click     float64 `yaml:"click" json:"click"`
	Activate  float64 `yaml:"activate" json:"activate"`
	DecayDays float64 `yaml:"decay_days" json:"decay_days"`
}

// Normalize 回填默认值，返回自身便于链式使用。
func (c *EngineConfig) Normalize() *EngineConfig {
	if c.VectorLen <= 0 {
		c.VectorLen = DefaultVectorLen
	}
	if c.ForestSize <= 0 {
		c.ForestSize = DefaultForestSize
	}
	if c.MaxLeafSize <= 0 {
		c.MaxLeafSize = DefaultMaxLeafSize
	}
	if c.SimilarThreshold <= 0 {
		c.SimilarThreshold = DefaultSimilarThreshold
	}
	if c.TopN <= 0 {
		c.TopN = 10
	}
	if c.Interaction.View == 0 {
		c.Interaction.View = 0.1
	}
	if c.Interaction.Click == 0 {
		c.Interaction.Click = 0.3
	}
	if c.Interaction.Activate == 0 {
		c.Interaction.Activate = 0.6
	}
	if c.Interaction.DecayDays <= 0 {
		c.Interaction.DecayDays = 30
	}
	return c
}
