package packet

import "errors"

var (
	// 编码错误
	ErrCompressFailed = errors.New("compress payload failed")

	// 解码错误
	ErrFrameTooShort        = errors.New("frame shorter than header")
	ErrInvalidHeader        = errors.New("invalid frame header")
	ErrUnknownCompression   = errors.New("unknown compression flag")
	ErrDecompressFailed     = errors.New("decompress payload failed")
	ErrPayloadLengthInvalid = errors.New("invalid payload length")
)
