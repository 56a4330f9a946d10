// Package packet 实现BCAPI的数据包封帧格式。
// 每帧为8字节头部加负载：大端int32负载长度、1字节压缩标志（0=无压缩，
// 2=raw deflate压缩）、3个保留字节（发送时必须为0）。
package packet

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// 帧头部大小（4+1+1+1+1=8字节）
	HeadSize = 8

	// 压缩标志取值
	CompressionNone    byte = 0
	CompressionDeflate byte = 2
)

// Head 帧头部
type Head struct {
	PayloadLen  int32   // 负载长度（压缩时为压缩后长度），大端
	Compression byte    // 压缩标志
	Reserved    [3]byte // 保留字节，发送时为0
}

// Pack 将负载封装为一帧
// 参数：
//   - payload：原始负载字节
//   - compress：是否使用raw deflate压缩负载
// 返回：
//   - 完整的帧字节（头部+负载）
//   - 错误信息（压缩失败时）
func Pack(payload []byte, compress bool) ([]byte, error) {
	flag := CompressionNone
	body := payload

	if compress {
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressFailed, err)
		}
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressFailed, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressFailed, err)
		}
		body = buf.Bytes()
		flag = CompressionDeflate
	}

	frame := make([]byte, HeadSize+len(body))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(body)))
	frame[4] = flag
	// frame[5:8] 保留字节保持为0
	copy(frame[HeadSize:], body)
	return frame, nil
}

// Unpack 从一帧中取出负载，压缩帧自动解压
// 参数：
//   - frame：完整的帧字节（头部+负载）
// 返回：
//   - 负载字节（解压后）
//   - 错误信息（帧过短、头部非法、压缩标志未知、解压失败时）
func Unpack(frame []byte) ([]byte, error) {
	head, err := ParseHead(frame)
	if err != nil {
		return nil, err
	}

	body := frame[HeadSize:]

	switch head.Compression {
	case CompressionDeflate:
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return data, nil
	case CompressionNone:
		return body, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, head.Compression)
	}
}

// ParseHead 解析并校验8字节帧头部
// 参数：
//   - data：至少包含头部的字节（通常为完整帧或前8字节）
// 返回：
//   - 解析出的头部
//   - 错误信息（长度不足或负载长度为负时）
func ParseHead(data []byte) (*Head, error) {
	if len(data) < HeadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(data))
	}

	head := &Head{
		PayloadLen:  int32(binary.BigEndian.Uint32(data[0:4])),
		Compression: data[4],
	}
	copy(head.Reserved[:], data[5:8])

	if head.PayloadLen < 0 {
		return nil, fmt.Errorf("%w: %d", ErrPayloadLengthInvalid, head.PayloadLen)
	}

	return head, nil
}
