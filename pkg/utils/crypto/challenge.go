package crypto

import (
	"crypto/sha512"
	"fmt"
)

const (
	// SHA-384摘要长度
	DigestLen = sha512.Size384
)

// Latin1Bytes 将字符串按Latin-1（ISO 8859-1）编码为字节序列
// BCAPI的认证摘要按单字节字符处理口令，超出U+00FF的字符无法表示
// 参数：
//   - s：待编码的字符串
// 返回：
//   - Latin-1字节序列
//   - 错误信息（字符串包含超出Latin-1范围的字符时）
func Latin1Bytes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, fmt.Errorf("字符%q超出Latin-1编码范围", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// ChallengeResponse 计算认证应答摘要
// 应答为SHA-384(口令的Latin-1字节 || 设备下发的原始挑战字节)
// 参数：
//   - password：角色口令
//   - challenge：设备在首包中下发的挑战字节
// 返回：
//   - 48字节的SHA-384摘要
//   - 错误信息（口令无法按Latin-1编码时）
func ChallengeResponse(password string, challenge []byte) ([]byte, error) {
	pw, err := Latin1Bytes(password)
	if err != nil {
		return nil, err
	}

	h := sha512.New384()
	h.Write(pw)
	h.Write(challenge)
	return h.Sum(nil), nil
}
