package config

import "time"

type Config struct {
	// Пусто: документы хранятся в памяти процесса
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Ключ подписи билетов на скачивание
	Secret string
	TTL    time.Duration
}
