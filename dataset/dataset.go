// Package dataset 读取两份原始输入文件：无表头的游玩日志 CSV 与带表头的游戏目录 CSV。
// 只负责解析成类型化记录，校验与清洗由 interaction / catalog 完成。
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rushteam/playrec/core"
)

// ListSeparator 是目录中多值字段（类型、标签、分类）的分隔符。
const ListSeparator = ";"

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1 // 行宽不固定，由调用方检查
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

func invalid(module, format string, args ...any) error {
	return core.NewDomainError(module, core.ErrorCodeInvalidInput, fmt.Sprintf(format, args...))
}

// ReadInteractions 读取游玩日志：user_id, item_id, action, amount[, 其余列忽略]。
// 列数不足或数量无法解析时返回 INVALID_INPUT，错误信息带行号。
func ReadInteractions(r io.Reader) ([]core.InteractionRecord, error) {
	reader := newReader(r)
	var out []core.InteractionRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read interactions: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(row) < 4 {
			return nil, invalid(core.ModuleInteraction, "interactions line %d: want at least 4 columns, got %d", line, len(row))
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return nil, invalid(core.ModuleInteraction, "interactions line %d: amount %q: %v", line, row[3], err)
		}
		out = append(out, core.InteractionRecord{
			UserID: strings.TrimSpace(row[0]),
			ItemID: strings.TrimSpace(row[1]),
			Action: core.Action(strings.TrimSpace(row[2])),
			Amount: amount,
		})
	}
}

// 目录文件的列名。
const (
	colID         = "appid"
	colName       = "name"
	colDeveloper  = "developer"
	colPublisher  = "publisher"
	colCategories = "categories"
	colGenres     = "genres"
	colTags       = "steamspy_tags"
)

// ReadCatalog 读取游戏目录。列按表头名称匹配（大小写不敏感），只有 name 列必需，
// 其余缺失的列视为空。
func ReadCatalog(r io.Reader) ([]core.ItemProfile, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid(core.ModuleCatalog, "catalog: missing header")
		}
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols[colName]; !ok {
		return nil, invalid(core.ModuleCatalog, "catalog: header has no %q column", colName)
	}

	var out []core.ItemProfile
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		out = append(out, core.ItemProfile{
			ID:         field(colID),
			Name:       field(colName),
			Developer:  field(colDeveloper),
			Publisher:  field(colPublisher),
			Categories: splitList(field(colCategories)),
			Genres:     splitList(field(colGenres)),
			Tags:       splitList(field(colTags)),
		})
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
