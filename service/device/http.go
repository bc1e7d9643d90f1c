package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/khaledhikmat/cm-go/service/config"
)

type httpService struct {
	CfgSvc config.IService
	client *http.Client
}

// NewHTTP returns a device service that issues bounded snapshot requests.
// The timeout is absolute per request so a wedged device cannot stall a
// puller beyond it.
func NewHTTP(cfgsvc config.IService) IService {
	return &httpService{
		CfgSvc: cfgsvc,
		client: &http.Client{
			Timeout: time.Duration(cfgsvc.GetDeviceTimeout()) * time.Millisecond,
		},
	}
}

func (svc *httpService) Snapshot(ctx context.Context, addr string) ([]byte, error) {
	url := addr
	if !strings.Contains(url, "://") {
		url = fmt.Sprintf("http://%s", url)
	}
	url = fmt.Sprintf("%s/jpg", strings.TrimRight(url, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}

	resp, err := svc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", url, err)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("snapshot %s: empty body", url)
	}

	// JPEG SOI marker. Anything else is a device error page, not an image.
	if len(body) < 2 || body[0] != 0xFF || body[1] != 0xD8 {
		return nil, fmt.Errorf("snapshot %s: not a jpeg", url)
	}

	return body, nil
}
