package data

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/khaledhikmat/cm-go/model"
)

type fakeService struct {
	mu     sync.Mutex
	rooms  map[string]model.Room
	events []model.AuditEvent
	errors []interface{}
}

// NewFake returns an in-memory data service seeded with the given rooms.
func NewFake(rooms ...model.Room) IService {
	svc := &fakeService{
		rooms: map[string]model.Room{},
	}

	for _, room := range rooms {
		svc.rooms[room.ID] = room
	}

	return svc
}

func (svc *fakeService) RetrieveRooms() ([]model.Room, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	rooms := make([]model.Room, 0, len(svc.rooms))
	for _, room := range svc.rooms {
		rooms = append(rooms, room)
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Name < rooms[j].Name
	})

	return rooms, nil
}

func (svc *fakeService) RetrieveRoomByKey(key string) (model.Room, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	room, ok := svc.rooms[key]
	if !ok {
		return model.Room{}, fmt.Errorf("room %s not found", key)
	}

	return room, nil
}

func (svc *fakeService) NewRoom(room model.Room) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.rooms[room.ID]; ok {
		return fmt.Errorf("room %s already exists", room.ID)
	}

	if room.CreatedAt == 0 {
		room.CreatedAt = time.Now().Unix()
	}
	svc.rooms[room.ID] = room

	return nil
}

func (svc *fakeService) UpdateRoomExcluded(key string, excluded bool) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	room, ok := svc.rooms[key]
	if !ok {
		return fmt.Errorf("room %s not found", key)
	}

	room.Excluded = excluded
	svc.rooms[key] = room

	return nil
}

func (svc *fakeService) RetrieveAuditEvents(max int) ([]model.AuditEvent, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if max <= 0 || max > len(svc.events) {
		max = len(svc.events)
	}

	// Newest first, like the real store.
	events := make([]model.AuditEvent, 0, max)
	for i := len(svc.events) - 1; i >= 0 && len(events) < max; i-- {
		events = append(events, svc.events[i])
	}

	return events, nil
}

func (svc *fakeService) NewAuditEvent(event model.AuditEvent) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	svc.events = append(svc.events, event)

	return nil
}

func (svc *fakeService) NewError(err interface{}) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.errors = append(svc.errors, err)

	return nil
}

func (svc *fakeService) Close() error {
	return nil
}
