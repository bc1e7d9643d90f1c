package data

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/config"
)

type sqliteService struct {
	CfgSvc config.IService
	db     *sql.DB
}

// NewSQLite opens (or creates) the database at the configured path and
// applies pending schema migrations.
func NewSQLite(cfgsvc config.IService) (IService, error) {
	db, err := sql.Open("sqlite", cfgsvc.GetDBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc.org/sqlite serializes access per connection; a single
	// connection plus WAL keeps writers from tripping over each other.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteService{
		CfgSvc: cfgsvc,
		db:     db,
	}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("set journal mode: %w", err)
	}

	if _, err := db.Exec(`PRAGMA busy_timeout=3000`); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}

	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS rooms (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				device_addr TEXT NOT NULL DEFAULT '',
				qr_payload  TEXT NOT NULL DEFAULT '',
				teacher_id  TEXT NOT NULL DEFAULT '',
				excluded    INTEGER NOT NULL DEFAULT 0,
				created_at  INTEGER NOT NULL
			);
			CREATE TABLE IF NOT EXISTS audit_events (
				id           TEXT PRIMARY KEY,
				room_key     TEXT NOT NULL,
				detail       TEXT NOT NULL,
				evidence_url TEXT NOT NULL DEFAULT '',
				timestamp    INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp
				ON audit_events(timestamp DESC);
			CREATE TABLE IF NOT EXISTS component_errors (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				processor   TEXT NOT NULL,
				message     TEXT NOT NULL,
				inner       TEXT NOT NULL DEFAULT '',
				stack_trace TEXT NOT NULL DEFAULT '',
				misc        TEXT NOT NULL DEFAULT '',
				timestamp   INTEGER NOT NULL
			);
		`); err != nil {
			return fmt.Errorf("migrate schema to v1: %w", err)
		}

		if _, err := db.Exec(`PRAGMA user_version = 1`); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}

	return nil
}

func (svc *sqliteService) RetrieveRooms() ([]model.Room, error) {
	rows, err := svc.db.Query(`
		SELECT id, name, device_addr, qr_payload, teacher_id, excluded, created_at
		FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	rooms := []model.Room{}
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.DeviceAddr, &room.QRPayload,
			&room.TeacherID, &room.Excluded, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (svc *sqliteService) RetrieveRoomByKey(key string) (model.Room, error) {
	var room model.Room
	err := svc.db.QueryRow(`
		SELECT id, name, device_addr, qr_payload, teacher_id, excluded, created_at
		FROM rooms WHERE id = ?`, key).
		Scan(&room.ID, &room.Name, &room.DeviceAddr, &room.QRPayload,
			&room.TeacherID, &room.Excluded, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Room{}, fmt.Errorf("room %s not found", key)
	}
	if err != nil {
		return model.Room{}, fmt.Errorf("query room %s: %w", key, err)
	}

	return room, nil
}

func (svc *sqliteService) NewRoom(room model.Room) error {
	if room.CreatedAt == 0 {
		room.CreatedAt = time.Now().Unix()
	}

	_, err := svc.db.Exec(`
		INSERT INTO rooms (id, name, device_addr, qr_payload, teacher_id, excluded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.Name, room.DeviceAddr, room.QRPayload,
		room.TeacherID, room.Excluded, room.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert room %s: %w", room.ID, err)
	}

	return nil
}

func (svc *sqliteService) UpdateRoomExcluded(key string, excluded bool) error {
	_, err := svc.db.Exec(`UPDATE rooms SET excluded = ? WHERE id = ?`, excluded, key)
	if err != nil {
		return fmt.Errorf("update room %s: %w", key, err)
	}

	return nil
}

func (svc *sqliteService) RetrieveAuditEvents(max int) ([]model.AuditEvent, error) {
	if max <= 0 {
		max = 100
	}

	rows, err := svc.db.Query(`
		SELECT id, room_key, detail, evidence_url, timestamp
		FROM audit_events ORDER BY timestamp DESC LIMIT ?`, max)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []model.AuditEvent{}
	for rows.Next() {
		var event model.AuditEvent
		if err := rows.Scan(&event.ID, &event.RoomKey, &event.Detail,
			&event.EvidenceURL, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (svc *sqliteService) NewAuditEvent(event model.AuditEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	_, err := svc.db.Exec(`
		INSERT INTO audit_events (id, room_key, detail, evidence_url, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.RoomKey, event.Detail, event.EvidenceURL, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit event %s: %w", event.ID, err)
	}

	return nil
}

func (svc *sqliteService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	if custom, ok := err.(model.CustomError); ok {
		customErr = custom
	} else if plain, ok := err.(error); ok {
		customErr.Processor = "N/A"
		customErr.Inner = plain
		customErr.Message = plain.Error()
		customErr.StackTrace = "N/A"
	} else {
		customErr.Processor = "N/A"
		customErr.Message = fmt.Sprintf("%v", err)
		customErr.StackTrace = "N/A"
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	misc := ""
	if customErr.Misc != nil {
		if b, merr := json.Marshal(customErr.Misc); merr == nil {
			misc = string(b)
		}
	}

	_, dberr := svc.db.Exec(`
		INSERT INTO component_errors (processor, message, inner, stack_trace, misc, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		customErr.Processor, customErr.Message, inner, customErr.StackTrace, misc, time.Now().Unix())
	if dberr != nil {
		return fmt.Errorf("insert component error: %w", dberr)
	}

	return nil
}

func (svc *sqliteService) Close() error {
	return svc.db.Close()
}
