package detect

import (
	"context"

	"github.com/khaledhikmat/cm-go/model"
)

// IService submits an image to the detection engine and returns its raw
// predictions. Policy (class filtering, confidence floor) is applied by
// the caller via FilterPredictions.
type IService interface {
	Detect(ctx context.Context, image []byte) ([]model.Prediction, error)
}

// Classes that count as violations. Remotes are close enough to phones
// that the engine confuses them, so they are reported as phones.
var targetClasses = map[string]string{
	"cell phone": "cell phone",
	"remote":     "cell phone",
	"book":       "book",
}

// FilterPredictions keeps predictions of interest at or above the
// confidence floor, remapping aliased classes.
func FilterPredictions(predictions []model.Prediction, confidence float64) []model.Prediction {
	filtered := []model.Prediction{}

	for _, p := range predictions {
		mapped, ok := targetClasses[p.Class]
		if !ok || p.Confidence < confidence {
			continue
		}

		p.Class = mapped
		filtered = append(filtered, p)
	}

	return filtered
}
