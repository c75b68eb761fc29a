package ws

import (
	"time"
)

type EventType string

const (
	EventCameraStarted      EventType = "camera.started"
	EventCameraStopped      EventType = "camera.stopped"
	EventRecognitionToggled EventType = "recognition.toggled"
	EventFaceRegistered     EventType = "face.registered"
	EventFaceDeleted        EventType = "face.deleted"
	EventFaceRecognized     EventType = "face.recognized"
	EventUnknownCaptured    EventType = "unknown.captured"
	EventUnknownLabeled     EventType = "unknown.labeled"
)

type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
