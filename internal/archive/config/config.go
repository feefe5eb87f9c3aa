package config

type Config struct {
	// Пустой бакет: архив выключен
	Bucket       string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}
