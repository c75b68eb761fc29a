package facedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"a.png", true},
		{"a.PNG", true},
		{"a.jpg", true},
		{"a.jpeg", true},
		{"a.gif", true},
		{"virus.exe", false},
		{"archive.tar.gz", false},
		{"png", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedFile(tt.filename))
		})
	}
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"my photo.jpg", "my_photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\face.png`, "face.png"},
		{"Jiří Novák.png", "Jiri_Novak.png"},
		{"...", ""},
		{"._hidden.gif", "hidden.gif"},
		{"a<b>c|d.jpeg", "abcd.jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}

func TestValidateLabel(t *testing.T) {
	got, err := ValidateLabel("  Ana María ")
	assert.NoError(t, err)
	assert.Equal(t, "Ana María", got)

	for _, bad := range []string{"", " ", ".", "..", "a/b", `a\b`, "x..y", ".hidden"} {
		_, err := ValidateLabel(bad)
		assert.ErrorIs(t, err, ErrInvalidLabel, bad)
	}
}
