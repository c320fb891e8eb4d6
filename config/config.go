package config

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_MYSQL StorageType = "mysql"
const STORAGE_TYPE_MEMORY StorageType = "memory"

type Config struct {
	RedisConfig  RedisStorageConfig
	MysqlConfig  MysqlStorageConfig
	HttpPort     int
	StorageType  StorageType
	LogLevel     string
	AuditLogFile string
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}

type MysqlStorageConfig struct {
	DSN string
}
