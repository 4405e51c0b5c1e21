package config

// Config 配置主体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Elastic   ElasticConfig   `mapstructure:"elastic"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Logstash  LogstashConfig  `mapstructure:"logstash"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Widget    WidgetConfig    `mapstructure:"widget"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Sync      SyncConfig      `mapstructure:"sync"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	InternalEndpoint string `mapstructure:"internal_endpoint"`
	ExternalEndpoint string `mapstructure:"external_endpoint"`
	AccessKey        string `mapstructure:"access_key"`
	SecretKey        string `mapstructure:"secret_key"`
	MainBucket       string `mapstructure:"main_bucket"`
	InternalUseSSL   bool   `mapstructure:"internal_use_ssl"`
}

// ElasticConfig Elastic配置
type ElasticConfig struct {
	Address  string         `mapstructure:"address"`
	Username string         `mapstructure:"username"`
	Password string         `mapstructure:"password"`
	Indices  ElasticIndices `mapstructure:"indices"`
}

// ElasticIndices Elastic索引
type ElasticIndices struct {
	MessageIndex string `mapstructure:"message_index"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
	// EventTopic 领域事件 Topic
	EventTopic string `mapstructure:"event_topic"`
	// IndexerGroupID 消息索引消费者组
	IndexerGroupID string `mapstructure:"indexer_group_id"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	// ExpireHours 访客 Token 有效期
	ExpireHours int `mapstructure:"expire_hours"`
}

// WidgetConfig 嵌入脚本配置，变量名属于对外契约，已上线站点依赖，勿改
type WidgetConfig struct {
	PublicURL       string `mapstructure:"public_url"`
	WebsiteIDGlobal string `mapstructure:"website_id_global"`
	UserGlobal      string `mapstructure:"user_global"`
}

type AnalyticsConfig struct {
	WindowDays    int `mapstructure:"window_days"`
	RetentionDays int `mapstructure:"retention_days"`
	// RateLimit 每个 websiteId + IP 在 RateWindow 秒内允许的上报次数
	RateLimit  int `mapstructure:"rate_limit"`
	RateWindow int `mapstructure:"rate_window"`
}

type SyncConfig struct {
	PageSize    int    `mapstructure:"page_size"`
	RecountSpec string `mapstructure:"recount_spec"`
}
