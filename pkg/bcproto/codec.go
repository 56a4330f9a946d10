package bcproto

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal 将消息序列化为protobuf线格式字节
func (m *BCMessage) Marshal() []byte {
	var b []byte

	// 序列号始终编码，设备按此回显请求顺序
	b = protowire.AppendTag(b, fieldSequenceNumber, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.SequenceNumber))

	if m.Auth != nil {
		b = protowire.AppendTag(b, fieldAuth, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Auth.marshal())
	}
	if m.AuthResult != nil {
		b = protowire.AppendTag(b, fieldAuthResult, protowire.BytesType)
		b = protowire.AppendBytes(b, m.AuthResult.marshal())
	}
	if m.State != nil {
		// 状态请求编码为空的state子消息（仅表达字段存在）
		b = protowire.AppendTag(b, fieldState, protowire.BytesType)
		b = protowire.AppendBytes(b, m.State.marshal())
	}
	for _, p := range m.StateFilterPath {
		b = protowire.AppendTag(b, fieldStateFilterPath, protowire.BytesType)
		b = protowire.AppendString(b, p)
	}

	return b
}

func (a *Auth) marshal() []byte {
	var b []byte
	if a.Action != 0 {
		b = protowire.AppendTag(b, fieldAuthAction, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.Action))
	}
	if a.Role != 0 {
		b = protowire.AppendTag(b, fieldAuthRole, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.Role))
	}
	if a.Serial != "" {
		b = protowire.AppendTag(b, fieldAuthSerial, protowire.BytesType)
		b = protowire.AppendString(b, a.Serial)
	}
	if a.Version != "" {
		b = protowire.AppendTag(b, fieldAuthVersion, protowire.BytesType)
		b = protowire.AppendString(b, a.Version)
	}
	if len(a.ChallengeOrResponse) > 0 {
		b = protowire.AppendTag(b, fieldAuthChallengeOrResponse, protowire.BytesType)
		b = protowire.AppendBytes(b, a.ChallengeOrResponse)
	}
	if a.CompressionMask != 0 {
		b = protowire.AppendTag(b, fieldAuthCompressionMask, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.CompressionMask))
	}
	return b
}

func (r *Result) marshal() []byte {
	var b []byte
	if r.Status != 0 {
		b = protowire.AppendTag(b, fieldResultStatus, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Status))
	}
	return b
}

func (s *State) marshal() []byte {
	// 客户端只发送空的状态请求；回显原始字节用于调试回包场景
	if len(s.Raw) > 0 {
		return s.Raw
	}
	return nil
}

func (g *GPS) marshal() []byte {
	var b []byte
	if g.Switch != nil {
		var sw []byte
		if g.Switch.Enabled {
			sw = protowire.AppendTag(sw, fieldSwitchEnabled, protowire.VarintType)
			sw = protowire.AppendVarint(sw, 1)
		}
		b = protowire.AppendTag(b, fieldGPSSwitch, protowire.BytesType)
		b = protowire.AppendBytes(b, sw)
	}
	if g.Pos != nil {
		var pos []byte
		if g.Pos.Lat != "" {
			pos = protowire.AppendTag(pos, fieldPosLat, protowire.BytesType)
			pos = protowire.AppendString(pos, g.Pos.Lat)
		}
		if g.Pos.Long != "" {
			pos = protowire.AppendTag(pos, fieldPosLong, protowire.BytesType)
			pos = protowire.AppendString(pos, g.Pos.Long)
		}
		b = protowire.AppendTag(b, fieldGPSPos, protowire.BytesType)
		b = protowire.AppendBytes(b, pos)
	}
	return b
}

// MarshalState 将GPS状态编码为state子消息字节（测试脚本对端使用）
func MarshalState(g *GPS) []byte {
	var b []byte
	if g != nil {
		b = protowire.AppendTag(b, fieldStateGPS, protowire.BytesType)
		b = protowire.AppendBytes(b, g.marshal())
	}
	return b
}

// Unmarshal 从protobuf线格式字节解析消息
// 未知字段按线类型跳过，字节流非法时返回ErrMalformedMessage
func Unmarshal(data []byte) (*BCMessage, error) {
	m := &BCMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]

		switch {
		case num == fieldSequenceNumber && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			m.SequenceNumber = int64(v)
			data = data[n:]

		case num == fieldAuth && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			auth, err := unmarshalAuth(v)
			if err != nil {
				return nil, err
			}
			m.Auth = auth
			data = data[n:]

		case num == fieldAuthResult && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			result, err := unmarshalResult(v)
			if err != nil {
				return nil, err
			}
			m.AuthResult = result
			data = data[n:]

		case num == fieldState && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			state, err := unmarshalState(v)
			if err != nil {
				return nil, err
			}
			m.State = state
			data = data[n:]

		case num == fieldStateFilterPath && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			m.StateFilterPath = append(m.StateFilterPath, v)
			data = data[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			data = data[n:]
		}
	}
	return m, nil
}

func unmarshalAuth(data []byte) (*Auth, error) {
	a := &Auth{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]

		switch {
		case num == fieldAuthAction && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			a.Action = int32(v)
			data = data[n:]
		case num == fieldAuthRole && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			a.Role = int32(v)
			data = data[n:]
		case num == fieldAuthSerial && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			a.Serial = v
			data = data[n:]
		case num == fieldAuthVersion && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			a.Version = v
			data = data[n:]
		case num == fieldAuthChallengeOrResponse && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			a.ChallengeOrResponse = append([]byte(nil), v...)
			data = data[n:]
		case num == fieldAuthCompressionMask && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			a.CompressionMask = uint32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			data = data[n:]
		}
	}
	return a, nil
}

func unmarshalResult(data []byte) (*Result, error) {
	r := &Result{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]

		if num == fieldResultStatus && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			r.Status = int32(v)
			data = data[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]
	}
	return r, nil
}

func unmarshalState(data []byte) (*State, error) {
	s := &State{Raw: append([]byte(nil), data...)}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]

		if num == fieldStateGPS && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			gps, err := unmarshalGPS(v)
			if err != nil {
				return nil, err
			}
			s.GPS = gps
			data = data[n:]
			continue
		}

		// 状态快照的其余字段对本客户端不透明，整体保留在Raw中
		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]
	}
	return s, nil
}

func unmarshalGPS(data []byte) (*GPS, error) {
	g := &GPS{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]

		switch {
		case num == fieldGPSSwitch && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			sw := &GPSSwitch{}
			if err := unmarshalBoolField(v, fieldSwitchEnabled, &sw.Enabled); err != nil {
				return nil, err
			}
			g.Switch = sw
			data = data[n:]
		case num == fieldGPSPos && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			pos, err := unmarshalPos(v)
			if err != nil {
				return nil, err
			}
			g.Pos = pos
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			data = data[n:]
		}
	}
	return g, nil
}

func unmarshalPos(data []byte) (*GPSPos, error) {
	p := &GPSPos{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]

		switch {
		case num == fieldPosLat && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			p.Lat = v
			data = data[n:]
		case num == fieldPosLong && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			p.Long = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			data = data[n:]
		}
	}
	return p, nil
}

func unmarshalBoolField(data []byte, field protowire.Number, out *bool) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ErrMalformedMessage
		}
		data = data[n:]

		if num == field && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ErrMalformedMessage
			}
			*out = v != 0
			data = data[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return ErrMalformedMessage
		}
		data = data[n:]
	}
	return nil
}
