// Package artifact keeps combined bulk label documents and hands out signed
// tickets to download them.
package artifact

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iurnickita/primelabel/internal/artifact/config"
)

const DefaultTTL = time.Hour

type Ticket struct {
	ID        string    `json:"id"`
	Token     string    `json:"ticket"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Artifacts struct {
	store   Store
	tickets *Tickets
	ttl     time.Duration
	now     func() time.Time
}

func NewArtifacts(ctx context.Context, cfg config.Config) (*Artifacts, error) {
	var store Store
	if cfg.RedisAddr == "" {
		store = NewMemStore()
	} else {
		var err error
		store, err = NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
	}
	return New(store, cfg.Secret, cfg.TTL)
}

func New(store Store, secret string, ttl time.Duration) (*Artifacts, error) {
	if secret == "" {
		return nil, errors.New("artifact secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Artifacts{store: store, tickets: NewTickets(secret), ttl: ttl, now: time.Now}, nil
}

// Save stores content under a new id and returns a ticket for it.
func (a *Artifacts) Save(ctx context.Context, content string) (Ticket, error) {
	id := uuid.NewString()
	expiresAt := a.now().Add(a.ttl)

	if err := a.store.Put(ctx, id, content, a.ttl); err != nil {
		return Ticket{}, err
	}
	token, err := a.tickets.Issue(id, expiresAt)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{ID: id, Token: token, ExpiresAt: expiresAt}, nil
}

func (a *Artifacts) Open(ctx context.Context, ticket string) (string, error) {
	id, err := a.tickets.Parse(ticket)
	if err != nil {
		return "", err
	}
	return a.store.Get(ctx, id)
}

func (a *Artifacts) Close() error {
	return a.store.Close()
}
