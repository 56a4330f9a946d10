// Package breadcrumb 实现与单个Breadcrumb设备的BCAPI会话：
// 挑战-应答认证握手，以及认证后的状态查询。
package breadcrumb

import (
	"fmt"
	"time"

	"github.com/junbin-yang/bcapi-go/pkg/bcproto"
	"github.com/junbin-yang/bcapi-go/pkg/packet"
	"github.com/junbin-yang/bcapi-go/pkg/transport"
	"github.com/junbin-yang/bcapi-go/pkg/utils/crypto"
	log "github.com/junbin-yang/bcapi-go/pkg/utils/logger"
	"github.com/junbin-yang/bcapi-go/pkg/utils/network"
)

// 登录消息携带的客户端协议版本
const ProtocolVersion = "1.0"

// 认证成功对应的状态名称
const statusSuccess = "SUCCESS"

// Options 会话配置
type Options struct {
	// Timeout 连接与每次读写的超时时间，零值时使用transport.DefaultTimeout
	Timeout time.Duration

	// InsecureSkipVerify 是否跳过TLS证书校验（透传给传输层）
	InsecureSkipVerify bool
}

// Breadcrumb 到单个设备的BCAPI会话
//
// 单个实例不支持并发调用：连接与序列号由调用方串行使用。
// authenticated标志在握手成功后置位，后续查询失败只上报错误、
// 不会自动回退该标志（与设备侧参考行为一致）。
type Breadcrumb struct {
	host     string
	port     int
	role     string
	password string
	opts     Options

	conn          *transport.Transport // 未认证前为nil
	serial        string               // 设备首包中的序列号
	seqNum        int64                // 每次发送、每次接收各递增1
	authenticated bool

	// 可达性探测，默认为ICMP探测，测试中可替换
	probe func(host string) (bool, error)
}

// New 创建会话实例（不发起网络I/O）
// 参数：
//   - host：设备IPv4地址
//   - port：BCAPI服务端口
//   - role：登录角色名称（CO、ADMIN、VIEW）
//   - password：角色口令
//   - opts：会话配置
func New(host string, port int, role, password string, opts Options) *Breadcrumb {
	return &Breadcrumb{
		host:     host,
		port:     port,
		role:     role,
		password: password,
		opts:     opts,
		probe:    network.IsHostReachable,
	}
}

// Reachable 探测设备是否可达（单次ICMP回显）
func (b *Breadcrumb) Reachable() bool {
	ok, err := b.probe(b.host)
	if err != nil {
		log.Warnf("[BREADCRUMB] 可达性探测失败: %v", err)
		return false
	}
	return ok
}

// Serial 返回设备序列号（认证握手收到首包前为空）
func (b *Breadcrumb) Serial() string {
	return b.serial
}

// Authenticated 返回当前认证标志
func (b *Breadcrumb) Authenticated() bool {
	return b.authenticated
}

// SequenceNumber 返回当前序列号
func (b *Breadcrumb) SequenceNumber() int64 {
	return b.seqNum
}

// Close 关闭会话持有的连接，可重复调用
func (b *Breadcrumb) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// buildMessage 构建携带当前序列号的新消息
func (b *Breadcrumb) buildMessage() *bcproto.BCMessage {
	return &bcproto.BCMessage{SequenceNumber: b.seqNum}
}

// sendMessage 序列化、封帧并发送消息，成功后递增序列号
func (b *Breadcrumb) sendMessage(msg *bcproto.BCMessage, compress bool) error {
	frame, err := packet.Pack(msg.Marshal(), compress)
	if err != nil {
		return fmt.Errorf("封帧失败: %w", err)
	}
	if err := b.conn.Send(frame); err != nil {
		return err
	}
	b.seqNum++
	return nil
}

// getMessage 接收一帧并解析为消息，成功后递增序列号
func (b *Breadcrumb) getMessage() (*bcproto.BCMessage, error) {
	frame, err := b.conn.ReceiveFrame()
	if err != nil {
		return nil, err
	}
	payload, err := packet.Unpack(frame)
	if err != nil {
		return nil, err
	}
	msg, err := bcproto.Unmarshal(payload)
	if err != nil {
		return nil, err
	}
	b.seqNum++
	return msg, nil
}

// prepareLoginMessage 构建登录消息
// 应答为SHA-384(口令 || 设备挑战)，压缩能力位无条件通告
func (b *Breadcrumb) prepareLoginMessage(init *bcproto.BCMessage) (*bcproto.BCMessage, error) {
	roleCode, err := bcproto.RoleCode(b.role)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, b.role)
	}

	response, err := crypto.ChallengeResponse(b.password, init.Auth.ChallengeOrResponse)
	if err != nil {
		return nil, fmt.Errorf("计算认证应答失败: %w", err)
	}

	msg := b.buildMessage()
	msg.Auth = &bcproto.Auth{
		Action:              bcproto.ActionLogin,
		Role:                roleCode,
		Version:             ProtocolVersion,
		ChallengeOrResponse: response,
		CompressionMask:     bcproto.CompressionMaskDeflate,
	}
	return msg, nil
}

// Authenticate 执行认证握手
//
// 流程：可达性探测 → 建立TLS连接 → 收取设备首包（记录序列号与挑战）
// → 发送登录消息 → 收取结果。任何一步失败都不向调用方抛出，
// 仅记录日志并返回当前的认证标志；失败时连接会被关闭。
func (b *Breadcrumb) Authenticate() bool {
	if !b.Reachable() {
		log.Warnf("[BREADCRUMB] 设备%s不可达，跳过认证", b.host)
		return b.authenticated
	}

	// 每次认证都建立全新连接，旧连接直接废弃
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = transport.New(transport.Options{
		Timeout:            b.opts.Timeout,
		InsecureSkipVerify: b.opts.InsecureSkipVerify,
	})

	if err := b.conn.Connect(b.host, b.port); err != nil {
		log.Warnf("[BREADCRUMB] 连接%s:%d失败: %v", b.host, b.port, err)
		return b.authenticated
	}

	if err := b.handshake(); err != nil {
		log.Warnf("[BREADCRUMB] 认证握手失败: %v", err)
		b.conn.Close()
		return b.authenticated
	}

	log.Infof("[BREADCRUMB] 认证成功: serial=%s", b.serial)
	return b.authenticated
}

// handshake 执行已连接后的握手步骤，成功时置位认证标志
func (b *Breadcrumb) handshake() error {
	init, err := b.getMessage()
	if err != nil {
		return fmt.Errorf("接收设备首包失败: %w", err)
	}
	if init.Auth == nil {
		return ErrMissingAuth
	}
	b.serial = init.Auth.Serial

	login, err := b.prepareLoginMessage(init)
	if err != nil {
		return err
	}
	if err := b.sendMessage(login, false); err != nil {
		return fmt.Errorf("发送登录消息失败: %w", err)
	}

	result, err := b.getMessage()
	if err != nil {
		return fmt.Errorf("接收认证结果失败: %w", err)
	}
	if result.AuthResult == nil {
		return fmt.Errorf("认证结果缺少authResult子消息")
	}

	// 仅名称为SUCCESS的状态视为成功，未识别的状态码一律视为失败
	name, ok := bcproto.StatusName(result.AuthResult.Status)
	if !ok || name != statusSuccess {
		return fmt.Errorf("认证被设备拒绝: status=%d(%s)", result.AuthResult.Status, name)
	}

	b.authenticated = true
	return nil
}

// precheck 状态查询的前置条件检查，不产生网络I/O之外的副作用
func (b *Breadcrumb) precheck() error {
	if !b.Reachable() {
		return ErrUnreachable
	}
	if !b.authenticated || b.conn == nil {
		return ErrNotAuthenticated
	}
	return nil
}

// requestState 发送状态请求并返回响应中的状态快照
func (b *Breadcrumb) requestState(filters []string) (*bcproto.State, error) {
	msg := b.buildMessage()
	msg.State = &bcproto.State{} // 空的state子消息表示拉取状态
	msg.StateFilterPath = append(msg.StateFilterPath, filters...)

	if err := b.sendMessage(msg, false); err != nil {
		return nil, err
	}

	resp, err := b.getMessage()
	if err != nil {
		return nil, err
	}
	if resp.State == nil {
		return nil, ErrMissingState
	}
	return resp.State, nil
}

// GetState 拉取设备的完整状态快照
// 前置条件：设备可达且已认证，否则不产生I/O直接返回错误。
// 查询失败不会回退认证标志。
func (b *Breadcrumb) GetState() (*bcproto.State, error) {
	if err := b.precheck(); err != nil {
		return nil, err
	}
	return b.requestState(nil)
}

// GetStateFiltered 拉取按过滤路径收窄的状态快照
// 过滤路径按序追加到请求的stateFilterPath字段，错误处理与GetState一致
func (b *Breadcrumb) GetStateFiltered(filters []string) (*bcproto.State, error) {
	if err := b.precheck(); err != nil {
		return nil, err
	}
	return b.requestState(filters)
}
