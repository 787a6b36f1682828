package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrStateChanged 条件更新未命中：记录状态已被并发操作抢先变更
var ErrStateChanged = errors.New("记录状态已变更，请刷新后重试")
