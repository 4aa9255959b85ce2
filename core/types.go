package core

import "strings"

// Action 是交互记录的行为类型。
type Action string

const (
	ActionPlay     Action = "play"
	ActionPurchase Action = "purchase"
)

// InteractionRecord 是一条原始交互日志：(用户, 物品, 行为, 数值)。
// 对 play 行为，Amount 为游戏时长。
type InteractionRecord struct {
	UserID string
	ItemID string
	Action Action
	Amount float64
}

// IsPlay 判断是否为 play 行为（大小写与首尾空白不敏感）。
func (r InteractionRecord) IsPlay() bool {
	return strings.EqualFold(strings.TrimSpace(string(r.Action)), string(ActionPlay))
}

// ItemProfile 是物品的内容元数据，缺失的文本字段视为空。
type ItemProfile struct {
	ID         string
	Name       string
	Genres     []string
	Developer  string
	Publisher  string
	Categories []string
	Tags       []string
}

// NormalizeKey 返回物品的身份键：去除首尾空白并转小写。
// 交互日志与目录之间按该键做连接。
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
