package errors

import (
	"errors"

	"gorm.io/gorm"
)

// Kind 错误分类，决定调用方如何处理（不自动重试）
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Error 业务错误
//   - Code: 对外错误码（5 位，前两位为模块号）
//   - Reason: 被违反的不变量标识，供调用方选择其他操作
//   - Message: 人类可读说明
type Error struct {
	Kind    Kind
	Code    int
	Reason  string
	Message string
}

func (e *Error) Error() string { return e.Message }

// New 创建业务错误（通常作为包级哨兵变量）
func New(kind Kind, code int, reason, message string) *Error {
	return &Error{Kind: kind, Code: code, Reason: reason, Message: message}
}

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = New(KindConflict, 10409, "optimistic_lock", "数据已被其他操作修改，请刷新后重试")

// ErrInternal 存储或事务失败的兜底错误
var ErrInternal = New(KindInternal, 50000, "internal", "服务器内部错误")

// As 在错误链中查找业务错误
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 返回错误分类
// 未登记的错误一律视为 internal；唯一键冲突视为 conflict
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return KindConflict
	}
	return KindInternal
}

// IsConflict 是否为可预期的并发/状态冲突
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsDuplicateKey 是否为唯一索引冲突（需 gorm.Config.TranslateError=true）
func IsDuplicateKey(err error) bool { return errors.Is(err, gorm.ErrDuplicatedKey) }

// IsNotFound 是否为记录不存在
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
