package device

import (
	"context"
	"sync/atomic"
)

// FakeService serves a canned image (or a canned error) and counts how
// many snapshots were requested.
type FakeService struct {
	image []byte
	err   error
	polls int64
}

func NewFake(image []byte, err error) *FakeService {
	return &FakeService{
		image: image,
		err:   err,
	}
}

func (svc *FakeService) Snapshot(ctx context.Context, addr string) ([]byte, error) {
	atomic.AddInt64(&svc.polls, 1)

	if svc.err != nil {
		return nil, svc.err
	}

	return svc.image, nil
}

func (svc *FakeService) Polls() int {
	return int(atomic.LoadInt64(&svc.polls))
}
