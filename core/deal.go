package core

import "time"

// Deal 是上游 catalog 拉取到的优惠条目。
// 除向量化使用的字段（MerchantName、CashbackType、Cashback）与建图使用的
// 字段（MerchantName、Categories、ExpirationDate）之外，其余字段视为
// 透传 payload，引擎不解释其语义。
type Deal struct {
	ID              string     `json:"id"`
	DealID          string     `json:"dealId"`
	MerchantName    string     `json:"merchantName"`
	Logo            string     `json:"logo"`
	LogoAbsoluteURL string     `json:"logoAbsoluteUrl"`
	CashbackType    string     `json:"cashbackType"` // percent / fixed
	Cashback        float64    `json:"cashback"`
	Currency        string     `json:"currency"`
	Domains         []string   `json:"domains"`
	Countries       []string   `json:"countries"`
	Codes           []DealCode `json:"codes"`
	StartDate       string     `json:"startDate"`
	EndDate         string     `json:"endDate"`

	// Categories 可选，来自上游打标；建图时生成 belongs_to 边。
	Categories []string `json:"categories,omitempty"`

	// ExpirationDate 可选（RFC 3339）；缺省时回退到 EndDate。
	ExpirationDate string `json:"expirationDate,omitempty"`
}

// DealCode 是优惠码及其描述。
type DealCode struct {
	Code    string `json:"code"`
	Summary string `json:"summary"`
}

// Key 返回 Deal 在图与索引中使用的主键：优先 DealID，缺省回退 ID。
func (d *Deal) Key() string {
	if d.DealID != "" {
		return d.DealID
	}
	return d.ID
}

// ExpiresAt 解析过期时间；无法解析时返回零值与 false。
func (d *Deal) ExpiresAt() (time.Time, bool) {
	raw := d.ExpirationDate
	if raw == "" {
		raw = d.EndDate
	}
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Expired 判断 Deal 在 now 时刻是否已过期。
// 无法解析过期时间的 Deal 视为已过期（宁缺勿滥，不进入候选集）。
func (d *Deal) Expired(now time.Time) bool {
	t, ok := d.ExpiresAt()
	if !ok {
		return true
	}
	return t.Before(now)
}
