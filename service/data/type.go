package data

import "github.com/khaledhikmat/cm-go/model"

type IService interface {
	RetrieveRooms() ([]model.Room, error)
	RetrieveRoomByKey(key string) (model.Room, error)
	NewRoom(room model.Room) error
	UpdateRoomExcluded(key string, excluded bool) error

	RetrieveAuditEvents(max int) ([]model.AuditEvent, error)
	NewAuditEvent(event model.AuditEvent) error

	NewError(err interface{}) error

	Close() error
}
