// Package transport 维护到单个Breadcrumb设备的TLS连接，
// 提供阻塞式的帧发送与整帧接收。
package transport

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/junbin-yang/bcapi-go/pkg/packet"
	log "github.com/junbin-yang/bcapi-go/pkg/utils/logger"
)

const (
	// 默认连接/读写超时
	DefaultTimeout = 2 * time.Second

	// 单帧负载上限（含压缩后长度）
	RecvMaxSize = 65535
)

// Options 传输层配置
type Options struct {
	// Timeout 连接与每次读写的超时时间，零值时使用DefaultTimeout
	Timeout time.Duration

	// InsecureSkipVerify 是否跳过TLS证书校验。
	// Breadcrumb设备普遍使用自签名证书，需由调用方显式开启，
	// 参见配置文件中的同名开关。
	InsecureSkipVerify bool
}

// Transport 到单个设备的TLS连接，连接由所属会话独占
type Transport struct {
	opts Options
	conn net.Conn // nil表示未连接
	mu   sync.Mutex
}

// New 创建传输层实例（不发起网络I/O）
func New(opts Options) *Transport {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Transport{opts: opts}
}

// Connect 建立到设备的TLS连接
// 参数：
//   - host：设备IPv4地址
//   - port：BCAPI服务端口
// 返回：
//   - 错误信息（TCP连接或TLS协商失败时）
func (t *Transport) Connect(host string, port int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return ErrAlreadyConnected
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	raw, err := net.DialTimeout("tcp", addr, t.opts.Timeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	conn := tls.Client(raw, &tls.Config{
		InsecureSkipVerify: t.opts.InsecureSkipVerify,
	})

	// TLS握手同样受超时约束
	raw.SetDeadline(time.Now().Add(t.opts.Timeout))
	if err := conn.Handshake(); err != nil {
		raw.Close()
		return fmt.Errorf("%w: TLS handshake: %v", ErrConnectFailed, err)
	}
	raw.SetDeadline(time.Time{})

	t.conn = conn
	log.Infof("[TRANSPORT] 已连接到%s", addr)
	return nil
}

// Send 发送完整的帧字节
func (t *Transport) Send(frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(t.opts.Timeout))
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// ReceiveFrame 接收恰好一帧
// 先读满8字节头部，按头部声明的负载长度继续读满负载，
// 与传输层如何切分TCP段无关。
// 返回：
//   - 完整的帧字节（头部+负载，未解压）
//   - 错误信息（未连接、读取失败、声明长度非法或超限时）
func (t *Transport) ReceiveFrame() ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil, ErrNotConnected
	}

	conn.SetReadDeadline(time.Now().Add(t.opts.Timeout))

	head := make([]byte, packet.HeadSize)
	if _, err := io.ReadFull(conn, head); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrReceiveFailed, err)
	}

	h, err := packet.ParseHead(head)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReceiveFailed, err)
	}
	if h.PayloadLen > RecvMaxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, h.PayloadLen)
	}

	frame := make([]byte, packet.HeadSize+int(h.PayloadLen))
	copy(frame, head)
	if _, err := io.ReadFull(conn, frame[packet.HeadSize:]); err != nil {
		return nil, fmt.Errorf("%w: read payload: %v", ErrReceiveFailed, err)
	}

	log.Debugf("[TRANSPORT] 收到帧: 负载%d字节, 压缩标志=%d", h.PayloadLen, h.Compression)
	return frame, nil
}

// Close 关闭连接，可重复调用
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Connected 返回当前是否持有连接
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}
