package domain

import "time"

// RegisteredFace is one reference image as exposed by the listing endpoint.
type RegisteredFace struct {
	Name      string `json:"name"`
	ImagePath string `json:"image_path"`
	Filename  string `json:"filename"`
}

// UnknownFace is a stored face crop that did not match any identity.
type UnknownFace struct {
	Filename   string    `json:"filename"`
	ImagePath  string    `json:"image_path"`
	CapturedAt time.Time `json:"captured_at"`
}

// Recognition is a resolved identity published to event subscribers.
type Recognition struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Policy     string  `json:"policy"`
}
