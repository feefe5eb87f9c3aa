package config

import (
	"time"

	"github.com/iurnickita/primelabel/internal/model"
)

type Config struct {
	Marketplace Marketplace
	Retry       Retry
	Label       Label
	ShipFrom    model.Address
	// Число одновременно покупаемых этикеток в пакете; 1 = последовательно
	BulkConcurrency int
	// 0: фоновая синхронизация выключена
	SyncInterval time.Duration
}

type Marketplace struct {
	// Offline: фикстура вместо живого API
	Offline       bool
	Endpoint      string
	TokenEndpoint string
	ClientID      string
	ClientSecret  string
	RefreshToken  string
	MarketplaceID string
	Timeout       time.Duration
}

type Retry struct {
	MaxRetries int
	BaseDelay  time.Duration
}

type Label struct {
	X int
	Y int
}
