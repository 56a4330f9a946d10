package network

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	log "github.com/junbin-yang/bcapi-go/pkg/utils/logger"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	// 探测超时时间
	probeTimeout = 2 * time.Second
	// 探测报文负载
	probePayload = "BCAPI-PING"
)

// IsValidIPv4 检查字符串是否为合法的点分十进制IPv4地址
// 参数：
//   - address：待检查的字符串
// 返回：
//   - true表示合法IPv4地址，false表示非法（不抛出错误）
func IsValidIPv4(address string) bool {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return false
	}
	return addr.Is4()
}

// IsHostReachable 通过单次ICMP回显请求探测主机可达性
// 优先使用非特权UDP方式的ICMP套接字，失败时回退到原始套接字
// 参数：
//   - host：目标主机IPv4地址
// 返回：
//   - true表示主机可达；不可达返回false而非错误
//   - 地址非法时返回ErrInvalidIPv4，套接字建立失败时返回ErrProbeFailed
func IsHostReachable(host string) (bool, error) {
	if !IsValidIPv4(host) {
		return false, fmt.Errorf("%w: %q", ErrInvalidIPv4, host)
	}

	// 非特权ICMP（udp4）不需要root权限，Linux需开启ping_group_range
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	udpMode := true
	if err != nil {
		conn, err = icmp.ListenPacket("ip4:icmp", "0.0.0.0")
		udpMode = false
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer conn.Close()

	echo := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xFFFF,
			Seq:  1,
			Data: []byte(probePayload),
		},
	}

	wire, err := echo.Marshal(nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	var dst net.Addr = &net.IPAddr{IP: net.ParseIP(host)}
	if udpMode {
		dst = &net.UDPAddr{IP: net.ParseIP(host)}
	}

	if _, err := conn.WriteTo(wire, dst); err != nil {
		log.Debugf("[NETWORK] 发送ICMP回显请求失败: %v", err)
		return false, nil
	}

	if err := conn.SetReadDeadline(time.Now().Add(probeTimeout)); err != nil {
		return false, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			// 超时或读取错误均视为不可达
			log.Debugf("[NETWORK] 等待ICMP回显应答超时: %v", err)
			return false, nil
		}

		proto := 1 // ICMPv4协议号
		reply, err := icmp.ParseMessage(proto, buf[:n])
		if err != nil {
			continue
		}
		if reply.Type == ipv4.ICMPTypeEchoReply {
			return true, nil
		}
	}
}
