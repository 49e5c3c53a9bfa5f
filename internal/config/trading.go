package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	ModeVirtual = "virtual"
	ModeReal    = "real"

	DefaultLogFile = "trading.log"
)

// TradingConfig 交易配置文件（JSON）
type TradingConfig struct {
	Mode      string   `json:"mode" mapstructure:"mode"`
	Coins     []string `json:"coins" mapstructure:"coins"`
	LogFile   string   `json:"log_file" mapstructure:"log_file"`
	AccessKey string   `json:"access_key" mapstructure:"access_key"`
	SecretKey string   `json:"secret_key" mapstructure:"secret_key"`
}

// IsReal 只有 mode 忽略大小写等于 "real" 时才是实盘，其余取值一律回落到虚拟模式
func (c *TradingConfig) IsReal() bool {
	return strings.ToLower(c.Mode) == ModeReal
}

// HasCredentials 是否同时配置了 access_key 和 secret_key
func (c *TradingConfig) HasCredentials() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// LoadTradingConfig 读取交易配置文件
func LoadTradingConfig(path string) (*TradingConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("mode", ModeVirtual)
	v.SetDefault("coins", []string{})
	v.SetDefault("log_file", DefaultLogFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read trading config %s: %w", path, err)
	}

	var conf TradingConfig
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("decode trading config %s: %w", path, err)
	}
	if conf.LogFile == "" {
		conf.LogFile = DefaultLogFile
	}
	return &conf, nil
}
