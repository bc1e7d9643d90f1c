package detect

import (
	"context"

	"github.com/khaledhikmat/cm-go/model"
)

type fakeService struct {
	predictions []model.Prediction
	err         error
}

// NewFake returns a detect service producing canned predictions.
func NewFake(predictions []model.Prediction, err error) IService {
	return &fakeService{
		predictions: predictions,
		err:         err,
	}
}

func (svc *fakeService) Detect(ctx context.Context, image []byte) ([]model.Prediction, error) {
	if svc.err != nil {
		return nil, svc.err
	}

	return svc.predictions, nil
}
