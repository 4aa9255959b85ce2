package utils

import "strings"

// Label 是推荐链路中的可追踪标签：记录召回来源、过滤原因等。
// Value 与 Source 的语义由各 Node 自定义；这里只提供标准化的合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank / postprocess ...
}

// MergeLabel 用于合并同名 Label，保留历史：
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// Values 拆分合并后的 Value，去重并保持首次出现顺序。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	parts := strings.Split(l.Value, "|")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
