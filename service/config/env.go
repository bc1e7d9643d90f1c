package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type envService struct {
}

// NewEnv returns a config service backed by environment variables. Every
// getter reads the environment at call time so tests can override values
// with t.Setenv and long-lived components always see current settings.
func NewEnv() IService {
	return &envService{}
}

// GetModeMaxShutdownTime is the drain window in seconds that a mode
// processor waits on its streams before closing them.
func (svc *envService) GetModeMaxShutdownTime() int {
	return getInt("MODE_MAX_SHUTDOWN_TIME", 5)
}

func (svc *envService) GetHTTPAddr() string {
	return getString("HTTP_ADDR", ":8000")
}

// GetPublicBaseURL is the externally reachable base used when composing
// absolute evidence URLs for clients.
func (svc *envService) GetPublicBaseURL() string {
	return strings.TrimRight(getString("PUBLIC_BASE_URL", "http://localhost:8000"), "/")
}

func (svc *envService) GetDBPath() string {
	return getString("DB_PATH", "./cm.db")
}

func (svc *envService) GetUploadsFolder() string {
	return getString("UPLOADS_FOLDER", "./uploads")
}

func (svc *envService) GetRoomsSeedFile() string {
	return getString("ROOMS_SEED_FILE", fmt.Sprintf("%s/rooms.yaml", getString("SETTINGS_FOLDER", "./settings")))
}

// GetSubscriberQueueCapacity bounds each viewer's frame queue. New frames
// are dropped while the queue is full.
func (svc *envService) GetSubscriberQueueCapacity() int {
	return getInt("SUBSCRIBER_QUEUE_CAPACITY", 4)
}

// GetPullerIdleInterval is the sleep in milliseconds between subscriber
// checks while a puller has no viewers.
func (svc *envService) GetPullerIdleInterval() int {
	return getInt("PULLER_IDLE_INTERVAL", 2000)
}

// GetPullerFrameInterval is the pause in milliseconds between successful
// device polls.
func (svc *envService) GetPullerFrameInterval() int {
	return getInt("PULLER_FRAME_INTERVAL", 500)
}

// GetPullerFailureBackoff is the pause in milliseconds after a failed
// device poll or address resolution.
func (svc *envService) GetPullerFailureBackoff() int {
	return getInt("PULLER_FAILURE_BACKOFF", 1500)
}

// GetDeviceTimeout caps one device snapshot request, in milliseconds.
func (svc *envService) GetDeviceTimeout() int {
	return getInt("DEVICE_TIMEOUT", 3000)
}

// GetStreamReceiveTimeout is how long in milliseconds a viewer connection
// waits for a frame before emitting a keepalive.
func (svc *envService) GetStreamReceiveTimeout() int {
	return getInt("STREAM_RECEIVE_TIMEOUT", 10000)
}

func (svc *envService) GetServerPeriodicTimeout() int {
	return getInt("SERVER_PERIODIC_TIMEOUT", 30)
}

// GetMirrorIdentifier is the identifier that receives a copy of every
// alert. Setting it to an empty string disables mirroring.
func (svc *envService) GetMirrorIdentifier() string {
	if v, ok := os.LookupEnv("MIRROR_IDENTIFIER"); ok {
		return v
	}

	return "admin"
}

func (svc *envService) GetAuthRequired() bool {
	return getBool("AUTH_REQUIRED", false)
}

func (svc *envService) GetJWTSecret() string {
	// No default on purpose. Verification fails closed when the secret
	// is unset and auth is required.
	return os.Getenv("JWT_SECRET")
}

func (svc *envService) GetDetectorURL() string {
	return os.Getenv("DETECTOR_URL")
}

func (svc *envService) GetDetectorConfidence() float64 {
	return getFloat("DETECTOR_CONFIDENCE", 0.20)
}

func (svc *envService) GetDetectorTimeout() int {
	return getInt("DETECTOR_TIMEOUT", 10000)
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return i
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}

	return f
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}
