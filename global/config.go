package global

import (
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// SessionPolicy 会话过期策略。设计上先只支持 never_expire，
// TTL 留作后续开关，不需要重构调用方。
type SessionPolicy struct {
	Mode string        `mapstructure:"mode"` // never_expire / ttl
	TTL  time.Duration `mapstructure:"ttl"`
}

func (p SessionPolicy) Expires() bool { return p.Mode == "ttl" && p.TTL > 0 }

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	PoolSize uint64 `mapstructure:"pool_size"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type NatsConfig struct {
	URL     string `mapstructure:"url"` // 为空则关闭投递事件流
	Subject string `mapstructure:"subject_prefix"`
}

type ChatConfig struct {
	HistoryWindow int           `mapstructure:"history_window"` // 每会话内存窗口条数
	HistoryPage   int           `mapstructure:"history_page"`   // 默认拉取页大小
	SendQueue     int           `mapstructure:"send_queue"`     // 每连接发送队列长度
	UnauthTTL     time.Duration `mapstructure:"unauth_ttl"`     // 未授权连接宽限期
	SweepEvery    time.Duration `mapstructure:"sweep_every"`
}

type AppConfig struct {
	GatewayID string        `mapstructure:"gateway_id"`
	NodeID    int64         `mapstructure:"node_id"`
	Port      int           `mapstructure:"port"`
	JwtSecret string        `mapstructure:"jwt_secret"`
	Session   SessionPolicy `mapstructure:"session"`
	Mongo     MongoConfig   `mapstructure:"mongo"`
	Redis     RedisConfig   `mapstructure:"redis"`
	Nats      NatsConfig    `mapstructure:"nats"`
	Chat      ChatConfig    `mapstructure:"chat"`
}

var Config = Default()

func Default() AppConfig {
	return AppConfig{
		GatewayID: "gateway_01",
		NodeID:    1,
		Port:      8080,
		JwtSecret: "dev-secret-change-me",
		Session:   SessionPolicy{Mode: "never_expire"},
		Mongo:     MongoConfig{URI: "mongodb://localhost:27017", Database: "mrchat", PoolSize: 20},
		Redis:     RedisConfig{Addr: "127.0.0.1:6379"},
		Nats:      NatsConfig{Subject: "chat.delivered"},
		Chat: ChatConfig{
			HistoryWindow: 50,
			HistoryPage:   20,
			SendQueue:     256,
			UnauthTTL:     60 * time.Second,
			SweepEvery:    10 * time.Second,
		},
	}
}

// Load 读取 yaml 配置文件并覆盖默认值；文件不存在时保持默认。
// yaml 先解进 map，再走 mapstructure，这样 duration 字符串也能解。
func Load(path string) error {
	if path == "" {
		if env := os.Getenv("MRCHAT_CONFIG"); env != "" {
			path = env
		} else {
			return nil
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &Config,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(m); err != nil {
		return err
	}
	if env := os.Getenv("MRCHAT_JWT_SECRET"); env != "" {
		Config.JwtSecret = env
	}
	return nil
}
