package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams     = orz.NewError(10400, "参数无效")
	ErrIncorrectPassword = orz.NewError(10001, "口令错误")

	ErrConfiguration         = orz.NewError(20001, "配置无效")
	ErrDependencyUnavailable = orz.NewError(20002, "交易所集成不可用")
	ErrValidation            = orz.NewError(20003, "参数校验失败")
	ErrIllegalState          = orz.NewError(20004, "当前模式不允许该操作")
	ErrExchangeCall          = orz.NewError(20005, "交易所调用失败")
)
