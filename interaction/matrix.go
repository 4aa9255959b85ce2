// Package interaction 把原始交互日志聚合为用户×物品的参与度矩阵，并派生热度统计。
package interaction

import (
	"math"
	"sort"
	"strings"

	"github.com/rushteam/playrec/core"
)

// Entry 是矩阵中的一个观测值。
type Entry struct {
	UserID string
	ItemID string
	Amount float64
}

// Matrix 是稀疏的用户×物品参与度矩阵，只存非零聚合值；缺失表示未观测，而不是 0。
// 构建完成后只读，可被并发查询共享。
type Matrix struct {
	users  []string
	items  []string
	byUser map[string]map[string]float64
	byItem map[string]map[string]float64

	// known 是日志中出现过的所有物品（任意行为），keyIndex 为小写键到首次出现拼写的映射
	known    map[string]struct{}
	keyIndex map[string]string

	maxAmount float64
	entries   int
	skipped   int
}

// Aggregate 聚合交互记录：丢弃用户或物品为空的记录，只保留 play 行为，按 (用户, 物品) 求和，
// 并在非零聚合值上计算热度统计。过滤后没有 play 记录时返回 EmptyDataset 错误。
func Aggregate(records []core.InteractionRecord) (*Matrix, *Popularity, error) {
	b := newBuilder()
	for _, r := range records {
		if strings.TrimSpace(r.UserID) == "" || strings.TrimSpace(r.ItemID) == "" {
			b.skipped++
			continue
		}
		b.markKnown(r.ItemID)
		if !r.IsPlay() {
			continue
		}
		if r.Amount < 0 || math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
			b.skipped++
			continue
		}
		b.add(r.UserID, r.ItemID, r.Amount)
		b.plays++
	}
	if b.plays == 0 {
		return nil, nil, core.ErrEmptyDataset(core.ModuleInteraction)
	}
	m := b.build()
	if m.Len() == 0 {
		// 有 play 记录但聚合值全为 0，同样没有可用数据
		return nil, nil, core.ErrEmptyDataset(core.ModuleInteraction)
	}
	return m, newPopularity(m), nil
}

// Restrict 通过 resolve 把物品重新映射为目录中的物品，丢弃无法匹配的物品。
// 映射到同一目录物品的观测值相加。
func (m *Matrix) Restrict(resolve func(itemID string) (string, bool)) *Matrix {
	b := newBuilder()
	for _, item := range m.items {
		target, ok := resolve(item)
		if !ok {
			continue
		}
		b.markKnown(target)
		for user, amount := range m.byItem[item] {
			b.add(user, target, amount)
		}
	}
	b.skipped = m.skipped
	return b.build()
}

// Users 返回有观测值的用户（已排序）。
func (m *Matrix) Users() []string { return m.users }

// Items 返回有观测值的物品（已排序）。
func (m *Matrix) Items() []string { return m.items }

// ItemUsers 返回物品列：用户 → 参与度。调用方不得修改。
func (m *Matrix) ItemUsers(itemID string) map[string]float64 { return m.byItem[itemID] }

// UserItems 返回用户行：物品 → 参与度。调用方不得修改。
func (m *Matrix) UserItems(userID string) map[string]float64 { return m.byUser[userID] }

// Get 返回观测值，未观测时 ok 为 false。
func (m *Matrix) Get(userID, itemID string) (float64, bool) {
	v, ok := m.byUser[userID][itemID]
	return v, ok
}

// HasUser 判断用户是否有任何观测值。
func (m *Matrix) HasUser(userID string) bool {
	_, ok := m.byUser[userID]
	return ok
}

func (m *Matrix) HasItem(itemID string) bool {
	_, ok := m.byItem[itemID]
	return ok
}

// Resolve 把查询名解析为日志中的物品 ID：优先精确匹配，其次大小写不敏感匹配（首次出现的拼写）。
func (m *Matrix) Resolve(name string) (string, bool) {
	if _, ok := m.known[name]; ok {
		return name, true
	}
	id, ok := m.keyIndex[core.NormalizeKey(name)]
	return id, ok
}

// KnownItems 返回日志中出现过的全部物品（含只有非 play 行为的物品），已排序。
func (m *Matrix) KnownItems() []string {
	out := make([]string, 0, len(m.known))
	for id := range m.known {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MaxAmount 返回最大观测值，用于模型训练时的数值缩放与预测裁剪。
func (m *Matrix) MaxAmount() float64 { return m.maxAmount }

// Len 返回非零观测值个数。
func (m *Matrix) Len() int { return m.entries }

// Skipped 返回被丢弃的记录数：用户或物品为空的记录，以及数值非法（负数、NaN、Inf）的 play 记录。
func (m *Matrix) Skipped() int { return m.skipped }

// Entries 按 (用户, 物品) 字典序返回全部观测值，顺序确定。
func (m *Matrix) Entries() []Entry {
	out := make([]Entry, 0, m.entries)
	for _, user := range m.users {
		row := m.byUser[user]
		items := make([]string, 0, len(row))
		for item := range row {
			items = append(items, item)
		}
		sort.Strings(items)
		for _, item := range items {
			out = append(out, Entry{UserID: user, ItemID: item, Amount: row[item]})
		}
	}
	return out
}

type builder struct {
	sums     map[string]map[string]float64
	known    map[string]struct{}
	keyIndex map[string]string
	plays    int
	skipped  int
}

func newBuilder() *builder {
	return &builder{
		sums:     make(map[string]map[string]float64),
		known:    make(map[string]struct{}),
		keyIndex: make(map[string]string),
	}
}

func (b *builder) markKnown(itemID string) {
	if _, ok := b.known[itemID]; ok {
		return
	}
	b.known[itemID] = struct{}{}
	key := core.NormalizeKey(itemID)
	if _, ok := b.keyIndex[key]; !ok {
		b.keyIndex[key] = itemID
	}
}

func (b *builder) add(userID, itemID string, amount float64) {
	row, ok := b.sums[userID]
	if !ok {
		row = make(map[string]float64)
		b.sums[userID] = row
	}
	row[itemID] += amount
}

func (b *builder) build() *Matrix {
	m := &Matrix{
		byUser:   make(map[string]map[string]float64),
		byItem:   make(map[string]map[string]float64),
		known:    b.known,
		keyIndex: b.keyIndex,
		skipped:  b.skipped,
	}
	for user, row := range b.sums {
		for item, amount := range row {
			if amount == 0 {
				continue
			}
			if m.byUser[user] == nil {
				m.byUser[user] = make(map[string]float64)
			}
			m.byUser[user][item] = amount
			if m.byItem[item] == nil {
				m.byItem[item] = make(map[string]float64)
			}
			m.byItem[item][user] = amount
			if amount > m.maxAmount {
				m.maxAmount = amount
			}
			m.entries++
		}
	}
	m.users = sortedKeys(m.byUser)
	m.items = sortedKeys(m.byItem)
	return m
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
