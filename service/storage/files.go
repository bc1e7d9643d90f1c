package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/khaledhikmat/cm-go/service/config"
)

type filesService struct {
	CfgSvc config.IService
}

// NewFiles returns a storage service writing under the local uploads
// folder. The returned path is relative to the HTTP uploads mount.
func NewFiles(cfgsvc config.IService) IService {
	return &filesService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesService) StoreFile(name string, data []byte) (string, error) {
	folder := filepath.Join(svc.CfgSvc.GetUploadsFolder(), "evidence")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create evidence folder: %w", err)
	}

	path := filepath.Join(folder, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write evidence file: %w", err)
	}

	return fmt.Sprintf("/uploads/evidence/%s", name), nil
}
