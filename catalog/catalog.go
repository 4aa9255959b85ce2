// Package catalog 维护物品目录：按名称（大小写不敏感）去重，首次出现者保留。
package catalog

import (
	"sort"
	"strings"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/feature"
)

// DefaultSearchLimit 是名称搜索默认返回条数。
const DefaultSearchLimit = 10

// Catalog 是只读的物品目录。
type Catalog struct {
	profiles   []core.ItemProfile
	byKey      map[string]int
	duplicates int
}

// New 构建目录：名称为空的条目被丢弃，重名（忽略大小写）只保留第一次出现的条目。
func New(profiles []core.ItemProfile) *Catalog {
	c := &Catalog{
		profiles: make([]core.ItemProfile, 0, len(profiles)),
		byKey:    make(map[string]int, len(profiles)),
	}
	for _, p := range profiles {
		p.Name = strings.TrimSpace(p.Name)
		key := core.NormalizeKey(p.Name)
		if key == "" {
			continue
		}
		if _, ok := c.byKey[key]; ok {
			c.duplicates++
			continue
		}
		c.byKey[key] = len(c.profiles)
		c.profiles = append(c.profiles, p)
	}
	return c
}

// Len 返回去重后的物品数。
func (c *Catalog) Len() int { return len(c.profiles) }

// Duplicates 返回被丢弃的重名条目数。
func (c *Catalog) Duplicates() int { return c.duplicates }

// Profiles 按首次出现顺序返回物品。调用方不得修改。
func (c *Catalog) Profiles() []core.ItemProfile { return c.profiles }

// Get 按名称（大小写不敏感）查找物品。
func (c *Catalog) Get(name string) (core.ItemProfile, bool) {
	idx, ok := c.byKey[core.NormalizeKey(name)]
	if !ok {
		return core.ItemProfile{}, false
	}
	return c.profiles[idx], true
}

// Resolve 返回目录中的规范名称。
func (c *Catalog) Resolve(name string) (string, bool) {
	p, ok := c.Get(name)
	return p.Name, ok
}

// Names 返回排序后的物品名称。
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.profiles))
	for _, p := range c.profiles {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}

// ContentText 拼接参与内容向量化的字段：类型、标签、开发商、分类。
func ContentText(p core.ItemProfile) string {
	return feature.Combine(
		strings.Join(p.Genres, " "),
		strings.Join(p.Tags, " "),
		p.Developer,
		strings.Join(p.Categories, " "),
	)
}

// MergeNames 合并多个名称列表，大小写不敏感去重（首次出现的拼写保留）并排序。
func MergeNames(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, name := range list {
			key := core.NormalizeKey(name)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, strings.TrimSpace(name))
		}
	}
	sort.Strings(out)
	return out
}

// Search 在已排序的名称列表中做大小写不敏感的子串匹配，最多返回 limit 条。
func Search(names []string, query string, limit int) []string {
	q := core.NormalizeKey(query)
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	var out []string
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
