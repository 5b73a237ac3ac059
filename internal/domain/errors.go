package domain

import "errors"

// 业务错误统一定义在这里，repository 与 handler 通过 errors.Is 判断
var (
	ErrInvalidCredentials  = errors.New("邮箱/员工编号不存在或密码错误")
	ErrUnauthorized        = errors.New("用户未登录")
	ErrForbidden           = errors.New("权限不足")
	ErrNotFound            = errors.New("目标不存在")
	ErrDuplicateEmployeeID = errors.New("员工编号已存在")
	ErrDuplicateEmail      = errors.New("邮箱已存在")
	ErrSelfDeletion        = errors.New("不能删除自己的账号")
)
