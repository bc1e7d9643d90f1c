package config

// All durations are plain ints: seconds for the coarse knobs, milliseconds
// where sub-second resolution matters (puller and stream pacing).
type IService interface {
	GetModeMaxShutdownTime() int
	GetHTTPAddr() string
	GetPublicBaseURL() string
	GetDBPath() string
	GetUploadsFolder() string
	GetRoomsSeedFile() string
	GetSubscriberQueueCapacity() int
	GetPullerIdleInterval() int
	GetPullerFrameInterval() int
	GetPullerFailureBackoff() int
	GetDeviceTimeout() int
	GetStreamReceiveTimeout() int
	GetServerPeriodicTimeout() int
	GetMirrorIdentifier() string
	GetAuthRequired() bool
	GetJWTSecret() string
	GetDetectorURL() string
	GetDetectorConfidence() float64
	GetDetectorTimeout() int
}
