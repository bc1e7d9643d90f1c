package auth

import "github.com/khaledhikmat/cm-go/model"

// Roles carried by credentials. Session tokens additionally bind a room.
const (
	RoleAdmin   = "Admin"
	RoleTeacher = "Teacher"
	RoleSession = "TeacherSession"
)

type IService interface {
	Verify(token string) (model.Identity, error)
}
