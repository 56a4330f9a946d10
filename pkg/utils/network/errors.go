package network

import "errors"

var (
	ErrInvalidIPv4 = errors.New("invalid IPv4 address")
	ErrProbeFailed = errors.New("ICMP probe failed")
)
