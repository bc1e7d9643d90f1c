package mode

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/relay"
	"github.com/khaledhikmat/cm-go/service/lgr"
)

type seedFile struct {
	Rooms []seedRoom `yaml:"rooms"`
}

type seedRoom struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	DeviceAddr string `yaml:"deviceAddr"`
	QRPayload  string `yaml:"qrPayload"`
	TeacherID  string `yaml:"teacherId"`
	Excluded   bool   `yaml:"excluded"`
}

// The seed mode imports rooms from the configured YAML file and exits.
// Rooms that already exist are left untouched, so re-running is safe.
func Seed(canxCtx context.Context, svcs relay.ServicesFactory) error {
	path := svcs.CfgSvc.GetRoomsSeedFile()

	lgr.Logger.Info(
		"seeding rooms....",
		slog.String("file", path),
	)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("error parsing seed file: %w", err)
	}

	created := 0
	skipped := 0

	for _, room := range seed.Rooms {
		if canxCtx.Err() != nil {
			return canxCtx.Err()
		}

		if room.ID == "" || room.Name == "" {
			lgr.Logger.Warn(
				"skipping seed room without id or name",
				slog.String("id", room.ID),
				slog.String("name", room.Name),
			)
			skipped++
			continue
		}

		if _, err := svcs.DataSvc.RetrieveRoomByKey(room.ID); err == nil {
			skipped++
			continue
		}

		err := svcs.DataSvc.NewRoom(model.Room{
			ID:         room.ID,
			Name:       room.Name,
			DeviceAddr: room.DeviceAddr,
			QRPayload:  room.QRPayload,
			TeacherID:  room.TeacherID,
			Excluded:   room.Excluded,
		})
		if err != nil {
			return fmt.Errorf("error creating seed room %s: %w", room.ID, err)
		}

		created++
	}

	lgr.Logger.Info(
		"seeding rooms completed",
		slog.Int("created", created),
		slog.Int("skipped", skipped),
	)

	return nil
}
