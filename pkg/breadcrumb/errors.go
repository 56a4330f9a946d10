package breadcrumb

import "errors"

var (
	// 状态查询前置条件错误
	ErrUnreachable      = errors.New("device unreachable")
	ErrNotAuthenticated = errors.New("not authenticated")

	// 响应内容错误
	ErrMissingAuth  = errors.New("first message missing auth")
	ErrMissingState = errors.New("response missing state")
	ErrGPSData      = errors.New("malformed GPS data")
)
