// Package bcproto 实现BCAPI协议消息（BCMessage）的构建、解析与枚举映射。
// 消息模式是设备侧预定义的外部契约，本包固定其字段编号与枚举取值，
// 核心逻辑只通过这里列出的字段路径读写消息。
package bcproto

// BCMessage字段编号
const (
	fieldSequenceNumber  = 1
	fieldAuth            = 2
	fieldAuthResult      = 3
	fieldState           = 4
	fieldStateFilterPath = 5
)

// Auth子消息字段编号
const (
	fieldAuthAction              = 1
	fieldAuthRole                = 2
	fieldAuthSerial              = 3
	fieldAuthVersion             = 4
	fieldAuthChallengeOrResponse = 5
	fieldAuthCompressionMask     = 6
)

// Result子消息字段编号
const (
	fieldResultStatus = 1
)

// State及GPS子消息字段编号
const (
	fieldStateGPS      = 1
	fieldGPSSwitch     = 1
	fieldGPSPos        = 2
	fieldSwitchEnabled = 1
	fieldPosLat        = 1
	fieldPosLong       = 2
)

// 认证动作枚举
const (
	ActionNone   int32 = 0
	ActionLogin  int32 = 1
	ActionLogout int32 = 2
)

// 角色枚举
const (
	RoleNone  int32 = 0
	RoleCO    int32 = 1
	RoleAdmin int32 = 2
	RoleView  int32 = 3
)

// 认证结果状态枚举
const (
	StatusUnknown      int32 = 0
	StatusSuccess      int32 = 1
	StatusFailure      int32 = 2
	StatusUnauthorized int32 = 3
	StatusBusy         int32 = 4
)

// 压缩能力位：bit1表示支持deflate压缩
const CompressionMaskDeflate uint32 = 2

// BCMessage BCAPI协议消息
// 对应设备侧的BCMessage模式，未列出的字段对本客户端不可见
type BCMessage struct {
	SequenceNumber  int64    // 会话内单调递增的序列号
	Auth            *Auth    // 认证子消息
	AuthResult      *Result  // 认证结果子消息
	State           *State   // 状态快照（请求时置空子消息表示拉取状态）
	StateFilterPath []string // 状态过滤路径（repeated字段）
}

// Auth 认证子消息
type Auth struct {
	Action              int32  // 认证动作（LOGIN等）
	Role                int32  // 登录角色编码
	Serial              string // 设备序列号（设备在首包中填充）
	Version             string // 客户端协议版本
	ChallengeOrResponse []byte // 入站为设备挑战，出站为客户端应答摘要
	CompressionMask     uint32 // 客户端通告的压缩能力位
}

// Result 认证结果子消息
type Result struct {
	Status int32 // 结果状态码，仅SUCCESS视为成功
}

// State 设备状态快照
// Raw保留完整的原始子消息字节作为不透明快照，GPS为本客户端解析的已知部分
type State struct {
	GPS *GPS   // GPS状态（设备未上报时为nil）
	Raw []byte // 原始state子消息字节
}

// GPS GPS状态子消息
type GPS struct {
	Switch *GPSSwitch // GPS开关
	Pos    *GPSPos    // GPS位置
}

// GPSSwitch GPS开关子消息
type GPSSwitch struct {
	Enabled bool
}

// GPSPos GPS位置子消息，纬度/经度为度分格式字符串（如"2743.8950S"）
type GPSPos struct {
	Lat  string
	Long string
}

// 枚举名称与编码的双向映射，进程启动时构建一次，所有会话只读共享
var (
	actionCodes = map[string]int32{
		"NONE":   ActionNone,
		"LOGIN":  ActionLogin,
		"LOGOUT": ActionLogout,
	}

	roleCodes = map[string]int32{
		"CO":    RoleCO,
		"ADMIN": RoleAdmin,
		"VIEW":  RoleView,
	}

	statusNames = map[int32]string{
		StatusUnknown:      "UNKNOWN",
		StatusSuccess:      "SUCCESS",
		StatusFailure:      "FAILURE",
		StatusUnauthorized: "UNAUTHORIZED",
		StatusBusy:         "BUSY",
	}
)

// ActionCode 按名称查找认证动作编码
func ActionCode(name string) (int32, error) {
	code, ok := actionCodes[name]
	if !ok {
		return 0, ErrUnknownAction
	}
	return code, nil
}

// RoleCode 按名称查找角色编码
// 角色名称来自配置，未识别时返回ErrUnknownRole
func RoleCode(name string) (int32, error) {
	code, ok := roleCodes[name]
	if !ok {
		return 0, ErrUnknownRole
	}
	return code, nil
}

// StatusName 按编码查找结果状态名称
// 未识别的状态码返回ok=false，调用方应视为认证失败
func StatusName(code int32) (string, bool) {
	name, ok := statusNames[code]
	return name, ok
}
