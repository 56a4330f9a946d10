package transport

import "errors"

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnectFailed    = errors.New("connect failed")
	ErrSendFailed       = errors.New("send failed")
	ErrReceiveFailed    = errors.New("receive failed")
	ErrFrameTooLarge    = errors.New("frame exceeds receive limit")
)
