package model

import (
	"fmt"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Prediction is one detected object within a frame. The coordinates are
// pixel values relative to the original image with w and h as extents.
type Prediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Class      string  `json:"class"`
	Confidence float64 `json:"conf"`
}

// Frame is one captured image travelling through a relay. The image bytes
// are opaque to the relay layer; only the device service cares that they
// are a valid JPEG.
type Frame struct {
	SourceKey   string       `json:"sourceKey"`
	Image       []byte       `json:"image"`
	Predictions []Prediction `json:"predictions,omitempty"`
	Timestamp   int64        `json:"timestamp"`
}

// Alert is the payload pushed to alert subscribers. The broker treats it
// as opaque and delivers it unchanged.
type Alert struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	ClipURL   string `json:"clipUrl,omitempty"`
	SourceKey string `json:"sourceKey,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Room binds a source key to its classroom metadata. ID doubles as the
// source key used by relays and pullers.
type Room struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceAddr string `json:"deviceAddr"`
	QRPayload  string `json:"qrPayload"`
	TeacherID  string `json:"teacherId"`
	Excluded   bool   `json:"excluded"`
	CreatedAt  int64  `json:"createdAt"`
}

// AuditEvent is one persisted violation record.
type AuditEvent struct {
	ID          string `json:"id"`
	RoomKey     string `json:"roomKey"`
	Detail      string `json:"detail"`
	EvidenceURL string `json:"evidenceUrl"`
	Timestamp   int64  `json:"timestamp"`
}

// Identity is the validated result of a credential check.
type Identity struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
	RoomKey string `json:"roomKey"`
}

type RelayStats struct {
	SourceKey   string `json:"sourceKey"`
	Subscribers int    `json:"subscribers"`
	Frames      int64  `json:"frames"`
	Drops       int64  `json:"drops"`
	Timestamp   int64  `json:"timestamp"`
}

type PullerStats struct {
	SourceKey string `json:"sourceKey"`
	RunID     string `json:"runId"`
	Polls     int    `json:"polls"`
	Failures  int    `json:"failures"`
	Frames    int    `json:"frames"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type BrokerStats struct {
	Identifiers int   `json:"identifiers"`
	Connections int   `json:"connections"`
	Delivered   int64 `json:"delivered"`
	Failed      int64 `json:"failed"`
	Timestamp   int64 `json:"timestamp"`
}
