package main

import (
	"encoding/json"
	"log"

	"github.com/dushixiang/tradingmode/internal"
	"github.com/dushixiang/tradingmode/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string

	tradingConfig string
	venue         string
	quote         string
	proxyURL      string
)

var rootCmd = &cobra.Command{
	Use:   "tradingmode",
	Short: "Trading Mode - 虚拟/实盘模式切换控制台",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		return internal.Run(configFile)
	},
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "读取交易配置并以JSON输出账户信息",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()

		conf := &config.Config{
			TradingConfig: tradingConfig,
			Quote:         quote,
			Exchange: config.ExchangeConf{
				Venue:    venue,
				ProxyURL: proxyURL,
			},
		}
		info, err := internal.AccountInfo(cmd.Context(), conf, logger)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	},
}

func init() {
	// 全局配置文件标志
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "配置文件路径")

	accountCmd.Flags().StringVarP(&tradingConfig, "trading-config", "t", config.DefaultTradingConfig, "交易配置文件路径（JSON）")
	accountCmd.Flags().StringVar(&venue, "venue", config.DefaultVenue, "交易所: upbit / binance")
	accountCmd.Flags().StringVar(&quote, "quote", config.DefaultQuote, "计价货币")
	accountCmd.Flags().StringVar(&proxyURL, "proxy", "", "代理地址")
	rootCmd.AddCommand(accountCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
