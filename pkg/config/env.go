package config

const (
	EnvPrefix = "KIRANA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv        = "KIRANA_APP_ENV"
	EnvPort          = "KIRANA_APP_PORT"
	EnvStorageDriver = "KIRANA_STORAGE_DRIVER"

	EnvDBDSN  = "KIRANA_DB_DSN"
	EnvDBHost = "KIRANA_DB_HOST"
	EnvDBUser = "KIRANA_DB_USER"
	EnvDBName = "KIRANA_DB_NAME"

	EnvMongoURI   = "KIRANA_MONGO_URI"
	EnvRedisURL   = "KIRANA_REDIS_URL"
	EnvJWTSecret  = "KIRANA_JWT_SECRET"
	EnvJWTIssuer  = "KIRANA_JWT_ISSUER"
	EnvJWTExpMins = "KIRANA_JWT_EXPIRATION_MINUTES"

	EnvCORSOrigins = "KIRANA_CORS_ALLOWED_ORIGINS"
	EnvTwilioSID   = "KIRANA_TWILIO_ACCOUNT_SID"
	EnvTwilioToken = "KIRANA_TWILIO_AUTH_TOKEN"
	EnvTwilioFrom  = "KIRANA_TWILIO_PHONE_NUMBER"
)

const (
	StorageDriverAuto     = "auto"
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
	StorageDriverMongo    = "mongo"
)

var validStorageDrivers = []string{
	StorageDriverAuto,
	StorageDriverMemory,
	StorageDriverPostgres,
	StorageDriverSQLite,
	StorageDriverMongo,
}

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
