package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Driver 选择基础设施的实现
const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverKafka  = "kafka"
)

// Config 是所有服务共用的配置
type Config struct {
	Service   ServiceConfig     `yaml:"service"`
	Storage   StorageConfig     `yaml:"storage"`
	Bus       BusConfig         `yaml:"bus"`
	Redis     RedisConfig       `yaml:"redis"`
	Nacos     NacosConfig       `yaml:"nacos"`
	Zookeeper ZookeeperConfig   `yaml:"zookeeper"`
	Jaeger    JaegerConfig      `yaml:"jaeger"`
	Relay     RelayConfig       `yaml:"relay"`
	HTTP      HTTPConfig        `yaml:"http"`
	Services  map[string]string `yaml:"services"` // 服务名 -> 基础 URL，nacos 不可用时使用
	Orders    OrdersConfig      `yaml:"orders"`
	Products  ProductsConfig    `yaml:"products"`
}

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"logLevel"`
	// CallerArn 是本服务调用其他服务后端接口时携带的身份
	CallerArn string `yaml:"callerArn"`
}

type StorageConfig struct {
	Driver string      `yaml:"driver"`
	MySQL  MySQLConfig `yaml:"mysql"`
}

type MySQLConfig struct {
	DSN      string            `yaml:"dsn"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Addr     string            `yaml:"addr"`
	Database string            `yaml:"database"`
	Params   map[string]string `yaml:"params"`
}

// FormatDSN 优先使用显式 DSN，否则根据各字段拼装
func (c MySQLConfig) FormatDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Addr
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if len(c.Params) > 0 {
		cfg.Params = c.Params
	}
	return cfg.FormatDSN()
}

type BusConfig struct {
	Driver string      `yaml:"driver"`
	Name   string      `yaml:"name"` // EventBusName
	Kafka  KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers         []string      `yaml:"brokers"`
	Topic           string        `yaml:"topic"`
	DeadLetterTopic string        `yaml:"deadLetterTopic"`
	MaxRetries      int           `yaml:"maxRetries"`
	RetryBackoff    time.Duration `yaml:"retryBackoff"`
}

type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

type NacosConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerAddrs string `yaml:"serverAddrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"sessionTimeout"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type RelayConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batchSize"`
}

type HTTPConfig struct {
	ClientTimeout   time.Duration `yaml:"clientTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type OrdersConfig struct {
	ListLimit int `yaml:"listLimit"`
}

type ProductsConfig struct {
	SeedFile string `yaml:"seedFile"`
}

// DefaultConfig 返回开发环境的默认配置：内存存储与内存总线
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{Port: 8080, Environment: "dev", LogLevel: "info"},
		Storage: StorageConfig{Driver: DriverMemory},
		Bus: BusConfig{
			Driver: DriverMemory,
			Name:   "ecommerce-bus",
			Kafka: KafkaConfig{
				Topic:           "ecommerce-events",
				DeadLetterTopic: "ecommerce-events-dlt",
				MaxRetries:      2,
				RetryBackoff:    time.Second,
			},
		},
		Nacos:     NacosConfig{Group: "DEFAULT_GROUP"},
		Zookeeper: ZookeeperConfig{SessionTimeout: 10 * time.Second},
		Relay:     RelayConfig{Interval: time.Second, BatchSize: 100},
		HTTP:      HTTPConfig{ClientTimeout: 10 * time.Second, ShutdownTimeout: 10 * time.Second},
		Services:  map[string]string{},
		Orders:    OrdersConfig{ListLimit: 20},
	}
}

// Load 读取 YAML 配置文件（不存在时使用默认值），然后应用环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("bootstrap: read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("bootstrap: parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitList(v)
		}
	}

	str("SERVICE_NAME", &c.Service.Name)
	str("ENVIRONMENT", &c.Service.Environment)
	str("LOG_LEVEL", &c.Service.LogLevel)
	str("CALLER_ARN", &c.Service.CallerArn)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("MYSQL_DSN", &c.Storage.MySQL.DSN)
	str("BUS_DRIVER", &c.Bus.Driver)
	str("EVENT_BUS_NAME", &c.Bus.Name)
	list("KAFKA_BROKERS", &c.Bus.Kafka.Brokers)
	str("KAFKA_TOPIC", &c.Bus.Kafka.Topic)
	list("REDIS_ADDRS", &c.Redis.Addrs)
	str("NACOS_SERVER_ADDRS", &c.Nacos.ServerAddrs)
	str("NACOS_NAMESPACE", &c.Nacos.Namespace)
	str("NACOS_GROUP", &c.Nacos.Group)
	list("ZOOKEEPER_SERVERS", &c.Zookeeper.Servers)
	str("JAEGER_ENDPOINT", &c.Jaeger.Endpoint)

	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("bootstrap: invalid PORT %q: %w", v, err)
		}
		c.Service.Port = port
	}
	if v, ok := lookup("NACOS_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("bootstrap: invalid NACOS_ENABLED %q: %w", v, err)
		}
		c.Nacos.Enabled = enabled
	}
	// SERVICE_URL_<NAME>=http://host:port 覆盖静态服务地址，例如 SERVICE_URL_DELIVERY_PRICING
	for _, name := range []string{"orders", "payment", "payment-3p", "delivery", "delivery-pricing", "warehouse", "products", "users", "platform"} {
		key := "SERVICE_URL_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if v, ok := lookup(key); ok {
			if c.Services == nil {
				c.Services = map[string]string{}
			}
			c.Services[name] = v
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
