package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/junbin-yang/bcapi-go/pkg/utils/logger"
	"gopkg.in/yaml.v2"
)

var (
	APPNAME    string = "bcapi"
	VERSION    string = "undefined"
	BUILD_TIME string = "undefined"
	GO_VERSION string = "undefined"
)

// Config BCAPI客户端配置
type Config struct {
	Device struct {
		Host     string // 设备IP地址（IPv4）
		Port     int    // BCAPI服务端口
		Role     string // 登录角色名称（如CO、ADMIN、VIEW）
		Password string // 角色口令
	}
	TLS struct {
		// Breadcrumb设备普遍使用自签名证书，默认跳过证书校验。
		// 这是协议现状的显式配置项，部署可信CA后应关闭。
		InsecureSkipVerify bool `yaml:"insecureSkipVerify"`
	}
	TimeoutSec int `yaml:"timeoutSec"` // 连接/读写超时（秒），默认2秒
	Logger     struct {
		Dir    string
		Level  string
		Rotate bool
	}
}

func init() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stdout, APPNAME+", version: "+VERSION+" (built at "+BUILD_TIME+") "+GO_VERSION)
		flag.PrintDefaults()
	}
}

// Parse 解析配置文件并初始化日志
// 优先读取可执行文件同目录下的bcapi.yml，不存在时回退到/etc/bcapi.yml
func Parse() *Config {
	flag.Parse()

	ex, e := os.Executable()
	if e != nil {
		panic(e)
	}

	cfile := filepath.Dir(ex) + "/" + APPNAME + ".yml"
	if _, err := os.Stat(cfile); os.IsNotExist(err) {
		cfile = "/etc/" + APPNAME + ".yml"
	}

	conf := new(Config)
	data, err := os.ReadFile(cfile)
	if err != nil {
		panic(err)
	}
	yaml.Unmarshal(data, &conf)
	conf.ApplyDefaults()

	defer log.Sync()
	if conf.Logger.Rotate {
		if len(conf.Logger.Dir) == 0 {
			conf.Logger.Dir = filepath.Dir(ex)
		}
		out := log.NewProductionRotateByTime(conf.Logger.Dir + "/" + APPNAME + ".log")
		logger := log.New(out, log.InfoLevel)
		log.ReplaceDefault(logger)
	}
	switch conf.Logger.Level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	return conf
}

// ApplyDefaults 补齐未配置的默认值
func (c *Config) ApplyDefaults() {
	if c.Device.Port == 0 {
		c.Device.Port = 2300 // BCAPI默认端口
	}
	if c.Device.Role == "" {
		c.Device.Role = "CO"
	}
	if c.TimeoutSec == 0 {
		c.TimeoutSec = 2
	}
}
