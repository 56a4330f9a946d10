package breadcrumb

import (
	"fmt"
	"strconv"

	"github.com/junbin-yang/bcapi-go/pkg/bcproto"
)

// GPSInfo 从状态快照解码出的GPS信息
type GPSInfo struct {
	Enabled   bool    // GPS开关是否开启
	Latitude  float64 // 十进制纬度，南半球约定为负值
	Longitude float64 // 十进制经度
}

// GetGPS 从状态快照解码GPS位置
//
// 设备上报的纬度/经度为度分格式字符串：纬度前2位为度（如"2743.8950S"），
// 经度前3位为度（如"02258.1429E"），其后为分。十进制值为 度+分/60，
// 纬度按南半球约定取负。GPS关闭时返回Enabled=false的零值结果；
// 字段缺失或无法解析时返回ErrGPSData。
func GetGPS(state *bcproto.State) (*GPSInfo, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: 状态为空", ErrGPSData)
	}
	if state.GPS == nil || state.GPS.Switch == nil || !state.GPS.Switch.Enabled {
		return &GPSInfo{Enabled: false}, nil
	}
	if state.GPS.Pos == nil {
		return nil, fmt.Errorf("%w: 缺少位置字段", ErrGPSData)
	}

	lat, long := state.GPS.Pos.Lat, state.GPS.Pos.Long
	if len(lat) < 9 || len(long) < 10 {
		return nil, fmt.Errorf("%w: 位置字符串过短 lat=%q long=%q", ErrGPSData, lat, long)
	}

	latDeg, err := strconv.ParseFloat(lat[0:2], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: 纬度度数%q", ErrGPSData, lat[0:2])
	}
	latMin, err := strconv.ParseFloat(lat[2:9], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: 纬度分数%q", ErrGPSData, lat[2:9])
	}
	lonDeg, err := strconv.ParseFloat(long[0:3], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: 经度度数%q", ErrGPSData, long[0:3])
	}
	lonMin, err := strconv.ParseFloat(long[3:10], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: 经度分数%q", ErrGPSData, long[3:10])
	}

	return &GPSInfo{
		Enabled:   true,
		Latitude:  -1 * (latDeg + latMin/60),
		Longitude: lonDeg + lonMin/60,
	}, nil
}
