// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"os"
	"time"

	tml "github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config 网关配置, 对应 toml 配置文件
type Config struct {
	Title   string  `toml:"title" json:"title,omitempty"`
	Log     Log     `toml:"log" json:"log,omitempty"`
	RPC     RPC     `toml:"rpc" json:"rpc,omitempty"`
	Ledger  Ledger  `toml:"ledger" json:"ledger,omitempty"`
	Search  Search  `toml:"search" json:"search,omitempty"`
	Cache   Cache   `toml:"cache" json:"cache,omitempty"`
	Chain   Chain   `toml:"chain" json:"chain,omitempty"`
	Metrics Metrics `toml:"metrics" json:"metrics,omitempty"`
}

// Log 日志配置
type Log struct {
	// 日志级别，支持debug(dbug)/info/warn/error(eror)/crit
	Loglevel        string `toml:"loglevel" json:"loglevel,omitempty"`
	LogConsoleLevel string `toml:"logConsoleLevel" json:"logConsoleLevel,omitempty"`
	// 日志文件名，可带目录，所有生成的日志文件都放到此目录下
	LogFile string `toml:"logFile" json:"logFile,omitempty"`
	// 单个日志文件的最大值（单位：兆）
	MaxFileSize uint32 `toml:"maxFileSize" json:"maxFileSize,omitempty"`
	// 最多保存的历史日志文件个数
	MaxBackups uint32 `toml:"maxBackups" json:"maxBackups,omitempty"`
	// 最多保存的历史日志消息（单位：天）
	MaxAge uint32 `toml:"maxAge" json:"maxAge,omitempty"`
	// 日志文件名是否使用本地时间（否则使用UTC时间）
	LocalTime bool `toml:"localTime" json:"localTime,omitempty"`
	// 历史日志文件是否压缩（压缩格式为gz）
	Compress bool `toml:"compress" json:"compress,omitempty"`
	// 是否打印调用源文件和行号
	CallerFile bool `toml:"callerFile" json:"callerFile,omitempty"`
	// 是否打印调用方法
	CallerFunction bool `toml:"callerFunction" json:"callerFunction,omitempty"`
}

// RPC 对外 jsonrpc 服务配置
type RPC struct {
	ListenAddr  string   `toml:"listenAddr" json:"listenAddr,omitempty"`
	Paths       []string `toml:"paths" json:"paths,omitempty"`
	Whitelist   []string `toml:"whitelist" json:"whitelist,omitempty"`
	CorsOrigins []string `toml:"corsOrigins" json:"corsOrigins,omitempty"`
	// 同时处理的最大连接数, 0 不限制
	MaxConnections int   `toml:"maxConnections" json:"maxConnections,omitempty"`
	MaxBodySize    int64 `toml:"maxBodySize" json:"maxBodySize,omitempty"`
	// 每个调用方每秒允许的请求数, 0 不限流
	RateLimit float64 `toml:"rateLimit" json:"rateLimit,omitempty"`
	RateBurst int64   `toml:"rateBurst" json:"rateBurst,omitempty"`

	MaxBatchSize         int      `toml:"maxBatchSize" json:"maxBatchSize,omitempty"`
	BatchConcurrency     int      `toml:"batchConcurrency" json:"batchConcurrency,omitempty"`
	RequestTimeout       Duration `toml:"requestTimeout" json:"requestTimeout,omitempty"`
	TransactionErrorCode int      `toml:"transactionErrorCode" json:"transactionErrorCode,omitempty"`
	// 日志中请求和响应体的最大打印长度
	LogBodyLimit int `toml:"logBodyLimit" json:"logBodyLimit,omitempty"`
}

// Ledger 底层账本节点配置
type Ledger struct {
	Endpoint string   `toml:"endpoint" json:"endpoint,omitempty"`
	Timeout  Duration `toml:"timeout" json:"timeout,omitempty"`
	// 账本余额的小数位数, 用于换算为 wei
	BalanceDecimals int32  `toml:"balanceDecimals" json:"balanceDecimals,omitempty"`
	MethodPrefix    string `toml:"methodPrefix" json:"methodPrefix,omitempty"`
}

// Search 收据索引配置
type Search struct {
	DataDir         string `toml:"dataDir" json:"dataDir,omitempty"`
	MaxLogResults   int    `toml:"maxLogResults" json:"maxLogResults,omitempty"`
	MaxTraceResults int    `toml:"maxTraceResults" json:"maxTraceResults,omitempty"`
	MaxBlockTxs     int    `toml:"maxBlockTxs" json:"maxBlockTxs,omitempty"`
}

// Cache 结果缓存配置
type Cache struct {
	Enable   bool     `toml:"enable" json:"enable,omitempty"`
	Capacity int      `toml:"capacity" json:"capacity,omitempty"`
	MaxBytes int      `toml:"maxBytes" json:"maxBytes,omitempty"`
	TTL      Duration `toml:"ttl" json:"ttl,omitempty"`
}

// Chain 链相关的静态参数
type Chain struct {
	GasLimit      uint64 `toml:"gasLimit" json:"gasLimit,omitempty"`
	ClientVersion string `toml:"clientVersion" json:"clientVersion,omitempty"`
	// 非0时覆盖账本返回的 chainID
	ChainID uint64 `toml:"chainID" json:"chainID,omitempty"`
}

// Metrics 指标配置
type Metrics struct {
	Enable bool `toml:"enable" json:"enable,omitempty"`
}

// Duration toml 中以 "5s" 形式书写的时长
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Title: "evmgateway",
		Log: Log{
			Loglevel:        "info",
			LogConsoleLevel: "info",
			LogFile:         "logs/evmgateway.log",
			MaxFileSize:     300,
			MaxBackups:      100,
			MaxAge:          28,
			LocalTime:       true,
			Compress:        true,
		},
		RPC: RPC{
			ListenAddr:           "localhost:7000",
			Paths:                []string{"/", "/evm"},
			Whitelist:            []string{"*"},
			CorsOrigins:          []string{"*"},
			MaxConnections:       1000,
			MaxBodySize:          10 << 20,
			MaxBatchSize:         100,
			BatchConcurrency:     16,
			RequestTimeout:       Duration{30 * time.Second},
			TransactionErrorCode: 3,
			LogBodyLimit:         1024,
		},
		Ledger: Ledger{
			Endpoint:        "http://localhost:8888",
			Timeout:         Duration{10 * time.Second},
			BalanceDecimals: 18,
			MethodPrefix:    "ledger_",
		},
		Search: Search{
			DataDir:         "datadir/index",
			MaxLogResults:   10000,
			MaxTraceResults: 1000,
			MaxBlockTxs:     2000,
		},
		Cache: Cache{
			Enable:   true,
			Capacity: 10240,
			MaxBytes: 64 << 20,
			TTL:      Duration{time.Second},
		},
		Chain: Chain{
			GasLimit:      0x7fffffff,
			ClientVersion: "evmgateway",
		},
		Metrics: Metrics{},
	}
}

// InitCfg 读取配置文件, 未配置的项使用默认值
func InitCfg(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return InitCfgString(string(data))
}

// InitCfgString 解析配置字符串
func InitCfgString(cfgstring string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := tml.Decode(cfgstring, cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustInitCfgString 解析失败直接 panic, 用于测试
func MustInitCfgString(cfgstring string) *Config {
	cfg, err := InitCfgString(cfgstring)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (cfg *Config) check() error {
	if cfg.RPC.MaxBatchSize <= 0 {
		return errors.Wrap(ErrInvalidConfig, "rpc.maxBatchSize must be positive")
	}
	if cfg.RPC.BatchConcurrency <= 0 {
		cfg.RPC.BatchConcurrency = 1
	}
	if len(cfg.RPC.Paths) == 0 {
		cfg.RPC.Paths = []string{"/"}
	}
	if cfg.Ledger.Endpoint == "" {
		return errors.Wrap(ErrInvalidConfig, "ledger.endpoint is required")
	}
	return nil
}
