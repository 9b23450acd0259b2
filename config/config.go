package config

import "time"

// Config holds all environment-driven settings for fern. Binding is done by
// the host entrypoint; the tags follow the platform convention.
type Config struct {
	AppName    string `env:"APP_NAME" env-default:"fern"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`

	// OTLP tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingProtocol string `env:"TRACING_PROTOCOL" env-default:"grpc"`

	// PostgreSQL (entity staging + merge suggestions)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"fern"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Graph Database (Memgraph; inferred relationships)
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka Producer (merge lifecycle events)
	KafkaBrokers       []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic   string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"merge-events"`
	KafkaBatchSize     int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout  int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks  int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression   string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`
	KafkaEventsEnabled bool     `env:"KAFKA_EVENTS_ENABLED" env-default:"false"`

	// Matching
	MinMatchScore        float64 `env:"MIN_MATCH_SCORE" env-default:"0.5"`
	MergeConfidenceFloor float64 `env:"MERGE_CONFIDENCE_FLOOR" env-default:"0.7"`
	EntityScanLimit      int     `env:"ENTITY_SCAN_LIMIT" env-default:"1000"`
	EnableBlocking       bool    `env:"ENABLE_BLOCKING" env-default:"false"`

	// Merging
	AutoApplyEnabled   bool    `env:"AUTO_APPLY_ENABLED" env-default:"true"`
	AutoApplyThreshold float64 `env:"AUTO_APPLY_THRESHOLD" env-default:"0.95"`

	// Relationship strength
	StrengthHalfLifeDays        float64 `env:"STRENGTH_HALF_LIFE_DAYS" env-default:"30"`
	StrengthMaxEmailPerMonth    float64 `env:"STRENGTH_MAX_EMAIL_PER_MONTH" env-default:"20"`
	StrengthMaxCalendarPerMonth float64 `env:"STRENGTH_MAX_CALENDAR_PER_MONTH" env-default:"10"`
	StrengthEmailWeight         float64 `env:"STRENGTH_EMAIL_WEIGHT" env-default:"0.3"`
	StrengthCalendarWeight      float64 `env:"STRENGTH_CALENDAR_WEIGHT" env-default:"0.3"`
	StrengthRecencyWeight       float64 `env:"STRENGTH_RECENCY_WEIGHT" env-default:"0.25"`
	StrengthSentimentWeight     float64 `env:"STRENGTH_SENTIMENT_WEIGHT" env-default:"0.15"`
}
