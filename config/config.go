package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"clover-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"clover"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis (mailbox sync locks + settings cache)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Kafka Producer (status change notifications)
	KafkaBrokers           []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaNotificationTopic string   `env:"KAFKA_NOTIFICATION_TOPIC" env-default:"reimbursement-events"`
	KafkaBatchSize         int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout      int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks      int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression       string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Mail (IMAP ingest + SMTP send)
	MailIMAPAddress string        `env:"MAIL_IMAP_ADDRESS" env-default:""`
	MailSMTPAddress string        `env:"MAIL_SMTP_ADDRESS" env-default:""`
	MailUsername    string        `env:"MAIL_USERNAME" env-default:""`
	MailPassword    string        `env:"MAIL_PASSWORD" env-default:""`
	MailFromAddress string        `env:"MAIL_FROM_ADDRESS" env-default:""`
	MailReplyDomain string        `env:"MAIL_REPLY_DOMAIN" env-default:""`
	MailSyncWindow  int           `env:"MAIL_SYNC_WINDOW" env-default:"50"`
	MailSyncLockTTL time.Duration `env:"MAIL_SYNC_LOCK_TTL" env-default:"120s"`

	// AI classification
	AIBaseURL        string        `env:"AI_BASE_URL" env-default:"https://api.openai.com/v1"`
	AIRequestTimeout time.Duration `env:"AI_REQUEST_TIMEOUT" env-default:"20s"`

	// Settings cache
	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" env-default:"30s"`

	// Tracing
	TracingEnabled bool   `env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol   string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	OTLPInsecure   bool   `env:"OTLP_INSECURE" env-default:"true"`
}
