package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 模型构建与查询阶段的错误都使用此类型，Query Facade 依据 Code
// 把错误映射为结果状态（not_found / no_data / no_match ...）。
type DomainError struct {
	Code    string // 错误代码（如 "ITEM_NOT_FOUND", "NO_MATCH"）
	Message string // 错误消息
	Module  string // 模块名称（如 "cf", "content", "mf"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用（模型尚未构建）
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐引擎错误代码
	ErrorCodeEmptyDataset = "EMPTY_DATASET"  // 过滤后没有可用的 play 记录，构建失败
	ErrorCodeItemNotFound = "ITEM_NOT_FOUND" // 查询引用了未知物品
	ErrorCodeUnknownUser  = "UNKNOWN_USER"   // 隐因子模型中没有该用户
	ErrorCodeUnknownItem  = "UNKNOWN_ITEM"   // 隐因子模型中没有该物品
	ErrorCodeNoMatch      = "NO_MATCH"       // 查询没有产生非零分候选
	ErrorCodeNoData       = "NO_DATA"        // 物品存在但没有可用的交互数据
)

// 模块名称常量
const (
	ModuleStore       = "store"       // 存储模块
	ModuleInteraction = "interaction" // 交互聚合与热度统计
	ModuleCatalog     = "catalog"     // 物品目录
	ModuleCF          = "cf"          // 邻域相关性模型
	ModuleContent     = "content"     // 内容向量模型
	ModuleMF          = "mf"          // 隐因子模型
	ModuleEngine      = "engine"      // 查询门面
)

// ErrEmptyDataset 在过滤后没有剩余 play 记录时返回。
func ErrEmptyDataset(module string) *DomainError {
	return NewDomainError(module, ErrorCodeEmptyDataset, module+": no play records after filtering")
}

// ErrItemNotFound 表示查询的物品不在目录中。
func ErrItemNotFound(module, item string) *DomainError {
	return NewDomainError(module, ErrorCodeItemNotFound, fmt.Sprintf("%s: item %q not found", module, item))
}

func ErrUnknownUser(module, user string) *DomainError {
	return NewDomainError(module, ErrorCodeUnknownUser, fmt.Sprintf("%s: user %q has no observations", module, user))
}

func ErrUnknownItem(module, item string) *DomainError {
	return NewDomainError(module, ErrorCodeUnknownItem, fmt.Sprintf("%s: item %q has no observations", module, item))
}

// ErrNoMatch 表示查询没有产生任何非零分结果（区别于 not found）。
func ErrNoMatch(module, query string) *DomainError {
	return NewDomainError(module, ErrorCodeNoMatch, fmt.Sprintf("%s: no recommendations for %q", module, query))
}

func ErrNoData(module, item string) *DomainError {
	return NewDomainError(module, ErrorCodeNoData, fmt.Sprintf("%s: item %q has no engagement data", module, item))
}

// 通用错误检查函数

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

func IsEmptyDataset(err error) bool { return hasCode(err, ErrorCodeEmptyDataset) }
func IsItemNotFound(err error) bool { return hasCode(err, ErrorCodeItemNotFound) }
func IsUnknownUser(err error) bool  { return hasCode(err, ErrorCodeUnknownUser) }
func IsUnknownItem(err error) bool  { return hasCode(err, ErrorCodeUnknownItem) }
func IsNoMatch(err error) bool      { return hasCode(err, ErrorCodeNoMatch) }
func IsNoData(err error) bool       { return hasCode(err, ErrorCodeNoData) }

// IsColdStart 检查错误是否为隐因子模型的冷启动错误（用户或物品无观测）。
func IsColdStart(err error) bool {
	return IsUnknownUser(err) || IsUnknownItem(err)
}
