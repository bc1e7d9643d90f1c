package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/config"
)

type httpService struct {
	CfgSvc config.IService
	client *http.Client
}

// NewHTTP returns a detect service backed by an external engine reachable
// at the configured URL.
func NewHTTP(cfgsvc config.IService) IService {
	return &httpService{
		CfgSvc: cfgsvc,
		client: &http.Client{
			Timeout: time.Duration(cfgsvc.GetDetectorTimeout()) * time.Millisecond,
		},
	}
}

func (svc *httpService) Detect(ctx context.Context, image []byte) ([]model.Prediction, error) {
	url := svc.CfgSvc.GetDetectorURL()
	if url == "" {
		return nil, fmt.Errorf("detector url is not configured")
	}

	payload, err := json.Marshal(struct {
		Image string `json:"image"`
	}{
		Image: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect: status %d", resp.StatusCode)
	}

	var result struct {
		Predictions []model.Prediction `json:"predictions"`
		Error       string             `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("detect engine: %s", result.Error)
	}

	return result.Predictions, nil
}
