package device

import "context"

// IService fetches still images from classroom camera devices. Addr is
// the device host (optionally host:port) registered for the room.
type IService interface {
	Snapshot(ctx context.Context, addr string) ([]byte, error)
}
