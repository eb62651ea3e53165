package config

const EnvPrefix = "ORDERS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                         = "ORDERS_APP_ENV"
	EnvPort                           = "ORDERS_APP_PORT"
	EnvDBDSN                          = "ORDERS_DB_DSN"
	EnvDBHost                         = "ORDERS_DB_HOST"
	EnvDBUser                         = "ORDERS_DB_USER"
	EnvDBName                         = "ORDERS_DB_NAME"
	EnvRedisURL                       = "ORDERS_REDIS_URL"
	EnvJWTSecret                      = "ORDERS_JWT_SECRET"
	EnvJWTIssuer                      = "ORDERS_JWT_ISSUER"
	EnvJWTExpMins                     = "ORDERS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes         = "ORDERS_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID                   = "ORDERS_GCP_PROJECT_ID"
	EnvPubSubCatalogSubscription      = "ORDERS_PUBSUB_CATALOG_SUBSCRIPTION"
	EnvPubSubNotificationSubscription = "ORDERS_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvImportFeedPath                 = "ORDERS_IMPORT_FEED_PATH"
	EnvImportLockTTL                  = "ORDERS_IMPORT_LOCK_TTL"
)

