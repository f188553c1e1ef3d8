package core

import "time"

// UserProfile 是用户画像的核心抽象。
//
// 一句话定义：用户画像 = 向量通路的特征源 + 图通路的兴趣信号。
//
// 设计要点：
//  维度          作用
//  兴趣列表      图通路兴趣匹配 / 向量通路文本特征
//  问卷回答      向量通路问卷特征
//  地理位置      向量通路地理特征
//  设备上下文    向量通路设备特征
type UserProfile struct {
	UserID string

	// Interests 是用户声明的兴趣类目（"tech"、"food" 等）。
	// 图通路用它与 Deal 的 belongs_to 类目做重合度匹配。
	Interests []string

	// ShoppingFrequency 购物频率的文本描述（daily / weekly / monthly）。
	ShoppingFrequency string

	// SurveyAnswers 问卷回答：问题文本 -> 回答文本。
	SurveyAnswers map[string]string

	// Geo 地理位置；为空时地理特征退化为零向量。
	Geo *Geolocation

	// Device 设备上下文；为空时设备特征退化为零向量。
	Device *DeviceContext

	// UpdateTime 最后更新时间
	UpdateTime time.Time
}

// Geolocation 是粗粒度地理信号，来自外部 geolocation 表的 userGeo 行。
type Geolocation struct {
	CountryCode string `json:"countryCode"`
	IP          string `json:"ip"`
}

// DeviceContext 是采集时刻的设备与环境信号。
// 时间字段取采集时刻的本地时间，由调用方填充。
type DeviceContext struct {
	Class        string  // mobile / tablet / desktop
	Hour         int     // 0-23
	Weekday      int     // 0-6，周日为 0
	Month        int     // 0-11
	NetworkSpeed float64 // Mbps
	ScreenWidth  float64 // px
}

// NewUserProfile 创建一个新的用户画像。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:        userID,
		Interests:     make([]string, 0),
		SurveyAnswers: make(map[string]string),
		UpdateTime:    time.Now(),
	}
}

// AddInterest 追加兴趣类目（去重）。
func (p *UserProfile) AddInterest(category string) {
	for _, c := range p.Interests {
		if c == category {
			return
		}
	}
	p.Interests = append(p.Interests, category)
	p.UpdateTime = time.Now()
}

// InterestText 把兴趣与购物频率拼成向量化用的文本。
func (p *UserProfile) InterestText() string {
	text := ""
	for i, c := range p.Interests {
		if i > 0 {
			text += " "
		}
		text += c
	}
	if p.ShoppingFrequency != "" {
		if text != "" {
			text += " "
		}
		text += p.ShoppingFrequency
	}
	return text
}
