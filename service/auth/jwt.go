package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/config"
)

type jwtService struct {
	CfgSvc config.IService
}

// NewJWT returns an auth service that verifies HS256 tokens against the
// configured secret. Token issuance belongs to the identity layer that
// fronts this process; this side only validates.
func NewJWT(cfgsvc config.IService) IService {
	return &jwtService{
		CfgSvc: cfgsvc,
	}
}

func (svc *jwtService) Verify(token string) (model.Identity, error) {
	secret := svc.CfgSvc.GetJWTSecret()
	if secret == "" {
		return model.Identity{}, fmt.Errorf("jwt secret is not configured")
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return []byte(secret), nil
	})
	if err != nil {
		return model.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return model.Identity{}, fmt.Errorf("invalid token claims")
	}

	identity := model.Identity{}

	if sub, ok := claims["sub"].(string); ok {
		identity.Subject = sub
	}
	if identity.Subject == "" {
		return model.Identity{}, fmt.Errorf("token has no subject")
	}

	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	if room, ok := claims["room"].(string); ok {
		identity.RoomKey = room
	}

	return identity, nil
}
