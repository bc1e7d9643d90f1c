package auth

import (
	"fmt"

	"github.com/khaledhikmat/cm-go/model"
)

type fakeService struct {
}

// NewFake returns an auth service that accepts any non-empty token as an
// admin identity.
func NewFake() IService {
	return &fakeService{}
}

func (svc *fakeService) Verify(token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, fmt.Errorf("missing token")
	}

	return model.Identity{
		Subject: "fake-user",
		Role:    RoleAdmin,
	}, nil
}
