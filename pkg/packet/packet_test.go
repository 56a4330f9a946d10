package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// TestPackUnpackRoundTrip 测试压缩与非压缩路径的封帧往返
func TestPackUnpackRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello breadcrumb"),
		{0x00, 0xFF, 0x7F, 0x80},
		bytes.Repeat([]byte("BCAPI"), 1000),
		{},
	}

	for _, p := range payloads {
		for _, compress := range []bool{false, true} {
			frame, err := Pack(p, compress)
			if err != nil {
				t.Fatalf("封帧失败(compress=%v): %v", compress, err)
			}

			got, err := Unpack(frame)
			if err != nil {
				t.Fatalf("解帧失败(compress=%v): %v", compress, err)
			}
			if !bytes.Equal(got, p) {
				t.Errorf("往返结果不一致(compress=%v): 期望%d字节，实际%d字节", compress, len(p), len(got))
			}
		}
	}
}

// TestPackHeader 测试非压缩帧的头部布局
func TestPackHeader(t *testing.T) {
	payload := []byte("0123456789")

	frame, err := Pack(payload, false)
	if err != nil {
		t.Fatalf("封帧失败: %v", err)
	}

	if len(frame) != len(payload)+HeadSize {
		t.Errorf("帧长度不正确，期望%d，实际%d", len(payload)+HeadSize, len(frame))
	}
	if got := binary.BigEndian.Uint32(frame[0:4]); got != uint32(len(payload)) {
		t.Errorf("长度字段不正确，期望%d，实际%d", len(payload), got)
	}
	if frame[4] != CompressionNone {
		t.Errorf("压缩标志应为0，实际%d", frame[4])
	}
	for i := 5; i < 8; i++ {
		if frame[i] != 0 {
			t.Errorf("保留字节[%d]应为0，实际%d", i, frame[i])
		}
	}
}

// TestPackCompressedHeader 测试压缩帧头部声明的长度为压缩后长度
func TestPackCompressedHeader(t *testing.T) {
	payload := bytes.Repeat([]byte("A"), 4096)

	frame, err := Pack(payload, true)
	if err != nil {
		t.Fatalf("封帧失败: %v", err)
	}

	if frame[4] != CompressionDeflate {
		t.Errorf("压缩标志应为2，实际%d", frame[4])
	}
	declared := binary.BigEndian.Uint32(frame[0:4])
	if int(declared) != len(frame)-HeadSize {
		t.Errorf("声明长度应为压缩后负载长度%d，实际%d", len(frame)-HeadSize, declared)
	}
	if int(declared) >= len(payload) {
		t.Errorf("重复内容压缩后应短于原文，原文%d，压缩后%d", len(payload), declared)
	}
}

// TestUnpackShortFrame 测试短于头部的输入被拒绝
func TestUnpackShortFrame(t *testing.T) {
	for _, frame := range [][]byte{nil, {}, {0x01}, {0, 0, 0, 1, 0, 0, 0}} {
		if _, err := Unpack(frame); !errors.Is(err, ErrFrameTooShort) {
			t.Errorf("%d字节输入应返回ErrFrameTooShort，实际%v", len(frame), err)
		}
	}
}

// TestUnpackUnknownCompression 测试未知压缩标志被拒绝
func TestUnpackUnknownCompression(t *testing.T) {
	for _, flag := range []byte{1, 3, 0x7F, 0xFF} {
		frame, err := Pack([]byte("data"), false)
		if err != nil {
			t.Fatalf("封帧失败: %v", err)
		}
		frame[4] = flag

		if _, err := Unpack(frame); !errors.Is(err, ErrUnknownCompression) {
			t.Errorf("压缩标志%d应返回ErrUnknownCompression，实际%v", flag, err)
		}
	}
}

// TestUnpackCorruptDeflate 测试非法deflate流被拒绝
func TestUnpackCorruptDeflate(t *testing.T) {
	body := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	frame := make([]byte, HeadSize+len(body))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(body)))
	frame[4] = CompressionDeflate
	copy(frame[HeadSize:], body)

	if _, err := Unpack(frame); !errors.Is(err, ErrDecompressFailed) {
		t.Errorf("非法压缩流应返回ErrDecompressFailed，实际%v", err)
	}
}

// TestParseHeadNegativeLength 测试负的声明长度被拒绝
func TestParseHeadNegativeLength(t *testing.T) {
	frame := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0}
	if _, err := ParseHead(frame); !errors.Is(err, ErrPayloadLengthInvalid) {
		t.Errorf("负长度应返回ErrPayloadLengthInvalid，实际%v", err)
	}
}

// TestUnpackRawDeflate 测试解压使用无容器头的raw deflate格式
// zlib容器（带2字节头）的数据不应被接受
func TestUnpackRawDeflate(t *testing.T) {
	// 0x78 0x9C为zlib容器头，raw deflate流不应以合法方式包含该前缀下的完整流
	body := []byte{0x78, 0x9C, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01}
	frame := make([]byte, HeadSize+len(body))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(body)))
	frame[4] = CompressionDeflate
	copy(frame[HeadSize:], body)

	if _, err := Unpack(frame); err == nil {
		t.Error("zlib容器数据不应被raw deflate解压接受")
	}
}
