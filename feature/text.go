// Package feature 负责内容特征：文本清洗、分词、停用词与 TF-IDF 向量化。
package feature

import (
	"regexp"
	"sort"
	"strings"
)

// tokenPattern 匹配至少两个字符的词（字母、数字、下划线），其余字符都是分隔符。
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

var listSeparators = strings.NewReplacer(",", " ", ";", " ")

// Clean 统一文本：转小写，把列表分隔符 ',' 与 ';' 替换为空格。
func Clean(s string) string {
	return listSeparators.Replace(strings.ToLower(s))
}

// Combine 把多个文本字段用空格拼接后清洗，空字段跳过。
func Combine(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return Clean(strings.Join(parts, " "))
}

// Tokenize 返回参与向量化的 token 序列（保留重复，剔除停用词）。
func Tokenize(s string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(s), -1)
	out := matches[:0]
	for _, tok := range matches {
		if IsStopWord(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// RawTokens 返回按空白切分的原始 token 集合（去重），用于解释中的共有特征。
func RawTokens(s string) map[string]struct{} {
	fields := strings.Fields(Clean(s))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// SharedTokens 返回两段文本原始 token 的交集，按字典序排序。
func SharedTokens(a, b string) []string {
	ta, tb := RawTokens(a), RawTokens(b)
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	shared := make([]string, 0)
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared = append(shared, tok)
		}
	}
	sort.Strings(shared)
	return shared
}
