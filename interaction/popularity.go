package interaction

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/rushteam/playrec/core"
)

// Stats 是单个物品的热度统计。
type Stats struct {
	MeanEngagement float64 `json:"mean_engagement"`
	PlayCount      int     `json:"play_count"`
}

// Ranked 是带物品 ID 的热度统计，用于排行榜。
type Ranked struct {
	ItemID string `json:"item_id"`
	Stats
}

// Popularity 是按物品的热度索引。PlayCount 恒等于矩阵中该物品非零观测的用户数。
type Popularity struct {
	stats map[string]Stats
}

func newPopularity(m *Matrix) *Popularity {
	p := &Popularity{stats: make(map[string]Stats, len(m.items))}
	for _, item := range m.items {
		col := m.byItem[item]
		var sum float64
		for _, v := range col {
			sum += v
		}
		p.stats[item] = Stats{
			MeanEngagement: sum / float64(len(col)),
			PlayCount:      len(col),
		}
	}
	return p
}

// Get 返回物品的热度统计；没有观测的物品返回零值与 false。
func (p *Popularity) Get(itemID string) (Stats, bool) {
	s, ok := p.stats[itemID]
	return s, ok
}

// Len 返回有统计的物品数。
func (p *Popularity) Len() int { return len(p.stats) }

// TopByMean 返回平均参与度最高的 n 个物品；同分按 PlayCount 降序、物品 ID 升序。
func (p *Popularity) TopByMean(n int) []Ranked {
	return p.top(n, func(a, b Ranked) bool {
		if a.MeanEngagement != b.MeanEngagement {
			return a.MeanEngagement > b.MeanEngagement
		}
		if a.PlayCount != b.PlayCount {
			return a.PlayCount > b.PlayCount
		}
		return a.ItemID < b.ItemID
	})
}

// TopByCount 返回玩家数最多的 n 个物品；同分按平均参与度降序、物品 ID 升序。
func (p *Popularity) TopByCount(n int) []Ranked {
	return p.top(n, func(a, b Ranked) bool {
		if a.PlayCount != b.PlayCount {
			return a.PlayCount > b.PlayCount
		}
		if a.MeanEngagement != b.MeanEngagement {
			return a.MeanEngagement > b.MeanEngagement
		}
		return a.ItemID < b.ItemID
	})
}

func (p *Popularity) top(n int, less func(a, b Ranked) bool) []Ranked {
	all := make([]Ranked, 0, len(p.stats))
	for id, s := range p.stats {
		all = append(all, Ranked{ItemID: id, Stats: s})
	}
	sort.Slice(all, func(i, j int) bool { return less(all[i], all[j]) })
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// 导出到 KeyValueStore 的 key 后缀。
const (
	KeySuffixCount = ":count" // 有序集合：物品 → PlayCount
	KeySuffixMean  = ":mean"  // 有序集合：物品 → MeanEngagement
	KeySuffixStats = ":stats" // 哈希：物品 → Stats JSON
)

// Publish 把热度统计写入 KeyValueStore，供外部图表协作方与 recall.Hot 读取。
// 写入前先删除旧 key，保证导出的是完整快照。
func (p *Popularity) Publish(ctx context.Context, kv core.KeyValueStore, prefix string) error {
	countKey, meanKey, statsKey := prefix+KeySuffixCount, prefix+KeySuffixMean, prefix+KeySuffixStats
	for _, key := range []string{countKey, meanKey, statsKey} {
		if err := kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("popularity: reset %s: %w", key, err)
		}
	}

	ids := make([]string, 0, len(p.stats))
	for id := range p.stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := p.stats[id]
		if err := kv.ZAdd(ctx, countKey, float64(s.PlayCount), id); err != nil {
			return fmt.Errorf("popularity: zadd %s: %w", countKey, err)
		}
		if err := kv.ZAdd(ctx, meanKey, s.MeanEngagement, id); err != nil {
			return fmt.Errorf("popularity: zadd %s: %w", meanKey, err)
		}
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("popularity: encode %s: %w", id, err)
		}
		if err := kv.HSet(ctx, statsKey, id, data); err != nil {
			return fmt.Errorf("popularity: hset %s: %w", statsKey, err)
		}
	}
	return nil
}

// LoadStats 从 KeyValueStore 读回导出的统计。
func LoadStats(ctx context.Context, kv core.KeyValueStore, prefix string) (map[string]Stats, error) {
	raw, err := kv.HGetAll(ctx, prefix+KeySuffixStats)
	if err != nil {
		return nil, fmt.Errorf("popularity: hgetall: %w", err)
	}
	out := make(map[string]Stats, len(raw))
	for id, data := range raw {
		var s Stats
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("popularity: decode %s: %w", id, err)
		}
		out[id] = s
	}
	return out, nil
}
