package bcproto

import "errors"

var (
	// 枚举映射错误
	ErrUnknownAction = errors.New("unknown action name")
	ErrUnknownRole   = errors.New("unknown role name")

	// 编解码错误
	ErrMalformedMessage = errors.New("malformed BCMessage")
)
