package config

import "testing"

func TestDefaults(t *testing.T) {
	svc := NewEnv()

	if svc.GetHTTPAddr() != ":8000" {
		t.Errorf("expected :8000, got %s", svc.GetHTTPAddr())
	}
	if svc.GetSubscriberQueueCapacity() != 4 {
		t.Errorf("expected capacity 4, got %d", svc.GetSubscriberQueueCapacity())
	}
	if svc.GetModeMaxShutdownTime() != 5 {
		t.Errorf("expected 5 seconds, got %d", svc.GetModeMaxShutdownTime())
	}
	if svc.GetPullerIdleInterval() != 2000 {
		t.Errorf("expected 2000 ms, got %d", svc.GetPullerIdleInterval())
	}
	if svc.GetAuthRequired() {
		t.Error("expected auth to default to off")
	}
	if svc.GetDetectorConfidence() != 0.20 {
		t.Errorf("expected confidence 0.20, got %f", svc.GetDetectorConfidence())
	}
	if svc.GetMirrorIdentifier() != "admin" {
		t.Errorf("expected mirror admin, got %s", svc.GetMirrorIdentifier())
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("SUBSCRIBER_QUEUE_CAPACITY", "8")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("DETECTOR_CONFIDENCE", "0.5")
	t.Setenv("MODE_MAX_SHUTDOWN_TIME", "9")

	svc := NewEnv()

	if svc.GetHTTPAddr() != ":9000" {
		t.Errorf("expected :9000, got %s", svc.GetHTTPAddr())
	}
	if svc.GetSubscriberQueueCapacity() != 8 {
		t.Errorf("expected capacity 8, got %d", svc.GetSubscriberQueueCapacity())
	}
	if !svc.GetAuthRequired() {
		t.Error("expected auth to be on")
	}
	if svc.GetDetectorConfidence() != 0.5 {
		t.Errorf("expected confidence 0.5, got %f", svc.GetDetectorConfidence())
	}
	if svc.GetModeMaxShutdownTime() != 9 {
		t.Errorf("expected 9 seconds, got %d", svc.GetModeMaxShutdownTime())
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SUBSCRIBER_QUEUE_CAPACITY", "not-a-number")
	t.Setenv("AUTH_REQUIRED", "banana")
	t.Setenv("DETECTOR_CONFIDENCE", "very")

	svc := NewEnv()

	if svc.GetSubscriberQueueCapacity() != 4 {
		t.Errorf("expected the default capacity, got %d", svc.GetSubscriberQueueCapacity())
	}
	if svc.GetAuthRequired() {
		t.Error("expected the default auth setting")
	}
	if svc.GetDetectorConfidence() != 0.20 {
		t.Errorf("expected the default confidence, got %f", svc.GetDetectorConfidence())
	}
}

func TestPublicBaseURLTrimsTrailingSlash(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://monitor.example.com/")

	svc := NewEnv()

	if svc.GetPublicBaseURL() != "https://monitor.example.com" {
		t.Errorf("expected the trailing slash to be trimmed, got %s", svc.GetPublicBaseURL())
	}
}

func TestMirrorIdentifierCanBeDisabled(t *testing.T) {
	t.Setenv("MIRROR_IDENTIFIER", "")

	svc := NewEnv()

	if svc.GetMirrorIdentifier() != "" {
		t.Errorf("expected an empty mirror, got %s", svc.GetMirrorIdentifier())
	}
}

func TestRoomsSeedFileFollowsSettingsFolder(t *testing.T) {
	t.Setenv("SETTINGS_FOLDER", "/etc/cm")

	svc := NewEnv()

	if svc.GetRoomsSeedFile() != "/etc/cm/rooms.yaml" {
		t.Errorf("expected /etc/cm/rooms.yaml, got %s", svc.GetRoomsSeedFile())
	}
}
