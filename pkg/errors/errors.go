package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrDuplicateRecord 唯一约束冲突（数据库层 unique index 拒绝写入）
var ErrDuplicateRecord = errors.New("记录已存在，违反唯一约束")
