package artifact

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidTicket = errors.New("invalid download ticket")
	ErrExpiredTicket = errors.New("download ticket has expired")
)

const ticketIssuer = "primelabel"

// Tickets signs and checks download tickets. A ticket carries the artifact id
// in jti and expires together with the artifact.
type Tickets struct {
	secret []byte
	now    func() time.Time
}

func NewTickets(secret string) *Tickets {
	return &Tickets{secret: []byte(secret), now: time.Now}
}

func (t *Tickets) Issue(artifactID string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        artifactID,
		Issuer:    ticketIssuer,
		IssuedAt:  jwt.NewNumericDate(t.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse returns the artifact id of a valid ticket.
func (t *Tickets) Parse(ticket string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	token, err := parser.ParseWithClaims(ticket, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredTicket
		}
		return "", ErrInvalidTicket
	}
	if !token.Valid || claims.ID == "" || claims.Issuer != ticketIssuer {
		return "", ErrInvalidTicket
	}
	return claims.ID, nil
}
