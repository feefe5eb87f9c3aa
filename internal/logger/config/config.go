package config

type Config struct {
	LogLevel string
	// json или console
	Encoding string
}
