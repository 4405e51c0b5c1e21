package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	viper.SetEnvPrefix("HELPDOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file not found: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

// setDefaults 缺省值，保证分页、统计窗口等不会因漏配变成 0
func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("jwt.issuer", "Helpdock")
	viper.SetDefault("jwt.expire_hours", 24*30)
	viper.SetDefault("widget.website_id_global", "HELPDOCK_WEBSITE_ID")
	viper.SetDefault("widget.user_global", "HELPDOCK_USER")
	viper.SetDefault("analytics.window_days", 7)
	viper.SetDefault("analytics.retention_days", 400)
	viper.SetDefault("analytics.rate_limit", 120)
	viper.SetDefault("analytics.rate_window", 60)
	viper.SetDefault("sync.page_size", 50)
	viper.SetDefault("sync.recount_spec", "0 */10 * * * *")
	viper.SetDefault("kafka.event_topic", "helpdock-events")
	viper.SetDefault("kafka.indexer_group_id", "helpdock-message-indexer")
	viper.SetDefault("elastic.indices.message_index", "helpdock-messages")
}
