package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/junbin-yang/bcapi-go/pkg/breadcrumb"
	"github.com/junbin-yang/bcapi-go/pkg/utils/config"
	"github.com/junbin-yang/bcapi-go/pkg/utils/logger"
)

// CLI BCAPI客户端命令行工具
type CLI struct {
	conf   *config.Config
	device *breadcrumb.Breadcrumb
}

// NewCLI 创建CLI实例
func NewCLI(conf *config.Config) *CLI {
	return &CLI{
		conf: conf,
		device: breadcrumb.New(
			conf.Device.Host,
			conf.Device.Port,
			conf.Device.Role,
			conf.Device.Password,
			breadcrumb.Options{
				Timeout:            time.Duration(conf.TimeoutSec) * time.Second,
				InsecureSkipVerify: conf.TLS.InsecureSkipVerify,
			},
		),
	}
}

// Shutdown 关闭CLI
func (c *CLI) Shutdown() {
	logger.Info("[CLI] 正在关闭...")
	c.device.Close()
	logger.Info("[CLI] 已关闭")
}

// Authenticate 执行认证握手
func (c *CLI) Authenticate() {
	fmt.Printf("正在认证 %s:%d (角色=%s)...\n", c.conf.Device.Host, c.conf.Device.Port, c.conf.Device.Role)
	if c.device.Authenticate() {
		fmt.Printf("✓ 认证成功: serial=%s\n", c.device.Serial())
	} else {
		fmt.Println("✗ 认证失败（详细原因见日志）")
	}
}

// ShowState 拉取并展示状态快照概要
func (c *CLI) ShowState() error {
	state, err := c.device.GetState()
	if err != nil {
		return err
	}
	fmt.Printf("状态快照: %d字节\n", len(state.Raw))
	return nil
}

// ShowStateFiltered 拉取按过滤路径收窄的状态
func (c *CLI) ShowStateFiltered(filters []string) error {
	state, err := c.device.GetStateFiltered(filters)
	if err != nil {
		return err
	}
	fmt.Printf("状态快照(过滤路径=%v): %d字节\n", filters, len(state.Raw))
	return nil
}

// ShowGPS 拉取状态并解码GPS位置
func (c *CLI) ShowGPS() error {
	state, err := c.device.GetState()
	if err != nil {
		return err
	}
	gps, err := breadcrumb.GetGPS(state)
	if err != nil {
		return err
	}
	if !gps.Enabled {
		fmt.Println("GPS未开启")
		return nil
	}
	fmt.Printf("GPS位置: 纬度=%.6f 经度=%.6f\n", gps.Latitude, gps.Longitude)
	return nil
}

// InteractiveMode 交互式模式
func (c *CLI) InteractiveMode() {
	fmt.Println("\n===========================================")
	fmt.Println("    Breadcrumb BCAPI 命令行工具 (交互模式)")
	fmt.Printf("    设备: %s:%d\n", c.conf.Device.Host, c.conf.Device.Port)
	fmt.Printf("    角色: %s\n", c.conf.Device.Role)
	fmt.Println("===========================================")
	fmt.Println("\n输入 'help' 查看可用命令")

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\nbcapi-cli> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]

		switch cmd {
		case "help", "h":
			c.printHelp()

		case "ping":
			if c.device.Reachable() {
				fmt.Println("设备可达")
			} else {
				fmt.Println("设备不可达")
			}

		case "auth":
			c.Authenticate()

		case "state":
			if err := c.ShowState(); err != nil {
				fmt.Printf("错误: %v\n", err)
			}

		case "filter":
			if len(parts) < 2 {
				fmt.Println("用法: filter <路径> [路径...]")
				fmt.Println("示例: filter gps instrumentation")
				continue
			}
			if err := c.ShowStateFiltered(parts[1:]); err != nil {
				fmt.Printf("错误: %v\n", err)
			}

		case "gps":
			if err := c.ShowGPS(); err != nil {
				fmt.Printf("错误: %v\n", err)
			}

		case "status":
			fmt.Printf("已认证: %v, serial=%s, seq=%d\n",
				c.device.Authenticated(), c.device.Serial(), c.device.SequenceNumber())

		case "exit", "quit", "q":
			fmt.Println("再见！")
			return

		default:
			fmt.Printf("未知命令: %s (输入 'help' 查看帮助)\n", cmd)
		}
	}
}

// printHelp 打印帮助信息
func (c *CLI) printHelp() {
	fmt.Println("\n可用命令:")
	fmt.Println("  help, h             - 显示此帮助")
	fmt.Println("  ping                - ICMP探测设备可达性")
	fmt.Println("  auth                - 执行认证握手")
	fmt.Println("  state               - 拉取完整状态快照")
	fmt.Println("  filter <路径>...    - 拉取按路径过滤的状态")
	fmt.Println("  gps                 - 拉取状态并解码GPS位置")
	fmt.Println("  status              - 显示会话状态")
	fmt.Println("  exit, quit, q       - 退出程序")
	fmt.Println()
}

func main() {
	conf := config.Parse()

	cli := NewCLI(conf)

	// 设置信号处理
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n收到中断信号，正在关闭...")
		cli.Shutdown()
		os.Exit(0)
	}()

	defer cli.Shutdown()

	cli.InteractiveMode()
}
