package breadcrumb

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/junbin-yang/bcapi-go/pkg/bcproto"
	"github.com/junbin-yang/bcapi-go/pkg/packet"
)

// generateTestCert 生成测试用自签名证书
func generateTestCert(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("生成测试密钥失败: %v", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "breadcrumb-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("生成测试证书失败: %v", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}
}

// scriptedPeer 脚本化的对端设备，模拟Breadcrumb的认证与状态应答
type scriptedPeer struct {
	ln        net.Listener
	serial    string
	password  string // 对端校验应答时使用的口令
	challenge []byte
	status    int32    // 认证结果状态码
	state     []byte   // 状态请求的应答（state子消息字节）
	errCh     chan error
	filterCh  chan []string // 记录收到的过滤路径
	doneCh    chan struct{}
}

// startScriptedPeer 启动脚本化对端并返回其监听地址
func startScriptedPeer(t *testing.T, peer *scriptedPeer) (host string, port int) {
	t.Helper()

	cert := generateTestCert(t)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		t.Fatalf("启动测试监听失败: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	peer.ln = ln
	peer.errCh = make(chan error, 8)
	peer.filterCh = make(chan []string, 8)
	peer.doneCh = make(chan struct{})
	go peer.serve()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("解析监听地址失败: %v", err)
	}
	portNum, _ := strconv.Atoi(p)
	return h, portNum
}

func (p *scriptedPeer) serve() {
	defer close(p.doneCh)

	conn, err := p.ln.Accept()
	if err != nil {
		p.errCh <- fmt.Errorf("接受连接失败: %v", err)
		return
	}
	defer conn.Close()

	// 首包：携带设备序列号与挑战
	if err := p.send(conn, &bcproto.BCMessage{
		Auth: &bcproto.Auth{
			Serial:              p.serial,
			ChallengeOrResponse: p.challenge,
		},
	}); err != nil {
		p.errCh <- err
		return
	}

	// 登录消息
	login, err := p.read(conn)
	if err != nil {
		// 客户端在发送前失败（如未知角色）属于预期路径
		return
	}
	if login.Auth == nil {
		p.errCh <- errors.New("登录消息缺少auth子消息")
		return
	}
	if login.Auth.Action != bcproto.ActionLogin {
		p.errCh <- fmt.Errorf("登录动作不正确: %d", login.Auth.Action)
	}
	if login.SequenceNumber != 1 {
		p.errCh <- fmt.Errorf("登录序列号期望1，实际%d", login.SequenceNumber)
	}
	if login.Auth.CompressionMask != bcproto.CompressionMaskDeflate {
		p.errCh <- fmt.Errorf("压缩能力位期望%d，实际%d", bcproto.CompressionMaskDeflate, login.Auth.CompressionMask)
	}

	// 校验应答摘要：SHA-384(口令||挑战)
	want := sha512.Sum384(append([]byte(p.password), p.challenge...))
	status := p.status
	if !bytes.Equal(login.Auth.ChallengeOrResponse, want[:]) {
		status = bcproto.StatusUnauthorized
	}

	if err := p.send(conn, &bcproto.BCMessage{
		AuthResult: &bcproto.Result{Status: status},
	}); err != nil {
		p.errCh <- err
		return
	}

	// 认证通过后循环服务状态请求
	if status != bcproto.StatusSuccess {
		return
	}
	for {
		req, err := p.read(conn)
		if err != nil {
			return // 客户端关闭连接
		}
		if req.State == nil {
			p.errCh <- errors.New("状态请求缺少state子消息")
			return
		}
		p.filterCh <- req.StateFilterPath

		if err := p.send(conn, &bcproto.BCMessage{
			SequenceNumber: req.SequenceNumber,
			State:          &bcproto.State{Raw: p.state},
		}); err != nil {
			p.errCh <- err
			return
		}
	}
}

func (p *scriptedPeer) send(conn net.Conn, msg *bcproto.BCMessage) error {
	frame, err := packet.Pack(msg.Marshal(), false)
	if err != nil {
		return fmt.Errorf("对端封帧失败: %v", err)
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("对端发送失败: %v", err)
	}
	return nil
}

func (p *scriptedPeer) read(conn net.Conn) (*bcproto.BCMessage, error) {
	head := make([]byte, packet.HeadSize)
	if _, err := io.ReadFull(conn, head); err != nil {
		return nil, err
	}
	h, err := packet.ParseHead(head)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, packet.HeadSize+int(h.PayloadLen))
	copy(frame, head)
	if _, err := io.ReadFull(conn, frame[packet.HeadSize:]); err != nil {
		return nil, err
	}
	payload, err := packet.Unpack(frame)
	if err != nil {
		return nil, err
	}
	return bcproto.Unmarshal(payload)
}

// checkPeerErrors 等待对端退出并上报其记录的校验错误
func checkPeerErrors(t *testing.T, peer *scriptedPeer) {
	t.Helper()
	select {
	case <-peer.doneCh:
	case <-time.After(3 * time.Second):
		t.Error("等待对端退出超时")
	}
	for {
		select {
		case err := <-peer.errCh:
			t.Errorf("对端校验失败: %v", err)
		default:
			return
		}
	}
}

// newTestBreadcrumb 创建指向脚本化对端的会话，探测桩恒为可达
func newTestBreadcrumb(host string, port int, role, password string) *Breadcrumb {
	b := New(host, port, role, password, Options{InsecureSkipVerify: true})
	b.probe = func(string) (bool, error) { return true, nil }
	return b
}

// TestAuthenticateSuccess 测试认证成功路径
func TestAuthenticateSuccess(t *testing.T) {
	peer := &scriptedPeer{
		serial:    "BC-TEST-0001",
		password:  "sesame",
		challenge: []byte{0x10, 0x20, 0xFE, 0x00, 0x42},
		status:    bcproto.StatusSuccess,
	}
	host, port := startScriptedPeer(t, peer)

	b := newTestBreadcrumb(host, port, "CO", "sesame")
	defer b.Close()

	if !b.Authenticate() {
		t.Fatal("认证应当成功")
	}
	if !b.Authenticated() {
		t.Error("认证标志应置位")
	}
	if b.Serial() != "BC-TEST-0001" {
		t.Errorf("设备序列号期望BC-TEST-0001，实际%q", b.Serial())
	}
	// 收首包+1，发登录+1，收结果+1
	if b.SequenceNumber() != 3 {
		t.Errorf("握手后序列号期望3，实际%d", b.SequenceNumber())
	}

	b.Close()
	checkPeerErrors(t, peer)
}

// TestAuthenticateWrongPassword 测试口令错误时认证失败且不抛出
func TestAuthenticateWrongPassword(t *testing.T) {
	peer := &scriptedPeer{
		serial:    "BC-TEST-0002",
		password:  "sesame",
		challenge: []byte{0x01, 0x02, 0x03},
		status:    bcproto.StatusSuccess,
	}
	host, port := startScriptedPeer(t, peer)

	b := newTestBreadcrumb(host, port, "CO", "wrong-password")
	defer b.Close()

	if b.Authenticate() {
		t.Fatal("口令错误时认证应当失败")
	}
	if b.Authenticated() {
		t.Error("认证标志不应置位")
	}
	// 失败发生在收到首包之后，serial已被记录
	if b.Serial() != "BC-TEST-0002" {
		t.Errorf("失败路径也应记录首包序列号，实际%q", b.Serial())
	}

	checkPeerErrors(t, peer)
}

// TestAuthenticateRejectedStatus 测试设备返回非SUCCESS状态时认证失败
func TestAuthenticateRejectedStatus(t *testing.T) {
	peer := &scriptedPeer{
		serial:    "BC-TEST-0003",
		password:  "sesame",
		challenge: []byte{0xAA},
		status:    bcproto.StatusBusy,
	}
	host, port := startScriptedPeer(t, peer)

	b := newTestBreadcrumb(host, port, "CO", "sesame")
	defer b.Close()

	if b.Authenticate() {
		t.Fatal("设备拒绝时认证应当失败")
	}
	checkPeerErrors(t, peer)
}

// TestAuthenticateUnknownRole 测试未知角色名在发送前即失败
func TestAuthenticateUnknownRole(t *testing.T) {
	peer := &scriptedPeer{
		serial:    "BC-TEST-0004",
		password:  "sesame",
		challenge: []byte{0x01},
		status:    bcproto.StatusSuccess,
	}
	host, port := startScriptedPeer(t, peer)

	b := newTestBreadcrumb(host, port, "SUPERUSER", "sesame")
	defer b.Close()

	if b.Authenticate() {
		t.Fatal("未知角色认证应当失败")
	}
	checkPeerErrors(t, peer)
}

// TestAuthenticateUnreachable 测试不可达设备直接跳过认证
func TestAuthenticateUnreachable(t *testing.T) {
	b := New("192.0.2.1", 2300, "CO", "sesame", Options{})
	b.probe = func(string) (bool, error) { return false, nil }

	if b.Authenticate() {
		t.Fatal("不可达设备认证应当失败")
	}
	if b.conn != nil {
		t.Error("不可达时不应建立连接")
	}
}

// TestGetState 测试认证后的状态查询与GPS解码
func TestGetState(t *testing.T) {
	peer := &scriptedPeer{
		serial:    "BC-TEST-0005",
		password:  "sesame",
		challenge: []byte{0x5A, 0xA5},
		status:    bcproto.StatusSuccess,
		state: bcproto.MarshalState(&bcproto.GPS{
			Switch: &bcproto.GPSSwitch{Enabled: true},
			Pos:    &bcproto.GPSPos{Lat: "2743.8950S", Long: "02258.1429E"},
		}),
	}
	host, port := startScriptedPeer(t, peer)

	b := newTestBreadcrumb(host, port, "CO", "sesame")
	defer b.Close()

	if !b.Authenticate() {
		t.Fatal("认证应当成功")
	}

	state, err := b.GetState()
	if err != nil {
		t.Fatalf("状态查询失败: %v", err)
	}
	filters := <-peer.filterCh
	if len(filters) != 0 {
		t.Errorf("完整状态查询不应携带过滤路径: %v", filters)
	}

	gps, err := GetGPS(state)
	if err != nil {
		t.Fatalf("GPS解码失败: %v", err)
	}
	if !gps.Enabled {
		t.Fatal("GPS应为开启状态")
	}
	if diff := gps.Latitude - (-27.731583333333333); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("纬度期望-27.731583…，实际%v", gps.Latitude)
	}
	if diff := gps.Longitude - 22.969048333333333; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("经度期望22.969048…，实际%v", gps.Longitude)
	}

	// 查询失败不回退认证标志：每次查询收发各+1
	if b.SequenceNumber() != 5 {
		t.Errorf("一次查询后序列号期望5，实际%d", b.SequenceNumber())
	}

	b.Close()
	checkPeerErrors(t, peer)
}

// TestGetStateFiltered 测试过滤路径按序携带在请求中
func TestGetStateFiltered(t *testing.T) {
	peer := &scriptedPeer{
		serial:    "BC-TEST-0006",
		password:  "sesame",
		challenge: []byte{0x77},
		status:    bcproto.StatusSuccess,
		state:     bcproto.MarshalState(&bcproto.GPS{Switch: &bcproto.GPSSwitch{Enabled: false}}),
	}
	host, port := startScriptedPeer(t, peer)

	b := newTestBreadcrumb(host, port, "CO", "sesame")
	defer b.Close()

	if !b.Authenticate() {
		t.Fatal("认证应当成功")
	}

	state, err := b.GetStateFiltered([]string{"gps", "instrumentation"})
	if err != nil {
		t.Fatalf("过滤状态查询失败: %v", err)
	}

	filters := <-peer.filterCh
	if len(filters) != 2 || filters[0] != "gps" || filters[1] != "instrumentation" {
		t.Errorf("过滤路径不正确: %v", filters)
	}

	gps, err := GetGPS(state)
	if err != nil {
		t.Fatalf("GPS解码失败: %v", err)
	}
	if gps.Enabled {
		t.Error("GPS开关关闭时应返回Enabled=false")
	}

	b.Close()
	checkPeerErrors(t, peer)
}

// TestQueryPreconditions 测试查询操作的前置条件错误
func TestQueryPreconditions(t *testing.T) {
	// 未认证
	b := New("127.0.0.1", 2300, "CO", "sesame", Options{})
	b.probe = func(string) (bool, error) { return true, nil }

	if _, err := b.GetState(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("未认证查询应返回ErrNotAuthenticated，实际%v", err)
	}
	if _, err := b.GetStateFiltered([]string{"gps"}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("未认证过滤查询应返回ErrNotAuthenticated，实际%v", err)
	}

	// 不可达：两个查询操作返回一致的错误类别
	b.probe = func(string) (bool, error) { return false, nil }
	if _, err := b.GetState(); !errors.Is(err, ErrUnreachable) {
		t.Errorf("不可达查询应返回ErrUnreachable，实际%v", err)
	}
	if _, err := b.GetStateFiltered(nil); !errors.Is(err, ErrUnreachable) {
		t.Errorf("不可达过滤查询应返回ErrUnreachable，实际%v", err)
	}
}

// TestQueryFailureKeepsAuthenticatedFlag 测试查询失败不回退认证标志
func TestQueryFailureKeepsAuthenticatedFlag(t *testing.T) {
	peer := &scriptedPeer{
		serial:    "BC-TEST-0007",
		password:  "sesame",
		challenge: []byte{0x33},
		status:    bcproto.StatusSuccess,
	}
	host, port := startScriptedPeer(t, peer)

	b := newTestBreadcrumb(host, port, "CO", "sesame")
	if !b.Authenticate() {
		t.Fatal("认证应当成功")
	}

	// 断开连接后查询报错，但认证标志保持（参考行为，见包注释）
	b.conn.Close()
	if _, err := b.GetState(); err == nil {
		t.Error("连接断开后的查询应返回错误")
	}
	if !b.Authenticated() {
		t.Error("查询失败不应回退认证标志")
	}
}
