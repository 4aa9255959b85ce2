package core

// 请求级参数 key。
const (
	ParamItem = "item" // 查询物品（liked item / target item）
	ParamText = "text" // 冷启动自由文本
	ParamTopN = "top_n"
)

// RecommendContext 承载用户/场景/请求参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID    string
	Scene     string // 策略名：cf / content / text / hybrid / popular
	RequestID string

	// Params 请求级参数：item, text, top_n 等
	Params map[string]any
}

// ParamString 读取字符串参数，不存在或类型不符时返回空串。
func (rctx *RecommendContext) ParamString(key string) string {
	if rctx == nil || rctx.Params == nil {
		return ""
	}
	s, _ := rctx.Params[key].(string)
	return s
}

// QueryItem 返回查询物品（liked item）。
func (rctx *RecommendContext) QueryItem() string {
	return rctx.ParamString(ParamItem)
}
