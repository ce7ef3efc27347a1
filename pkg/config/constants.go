package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GATEPASS_DB_DSN"
	EnvDBHost = "GATEPASS_DB_HOST"
	EnvDBUser = "GATEPASS_DB_USER"
	EnvDBName = "GATEPASS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
