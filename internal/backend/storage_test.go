package backend

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Avatars/My Photo.PNG", "avatars/my-photo.png"},
		{"/covers//Épisode 1.jpg", "covers/episode-1.jpg"},
		{"report.csv", "report.csv"},
		{"no-extension", "no-extension"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ObjectName(tt.in), tt.in)
	}
}

func TestPublicURL(t *testing.T) {
	s := &Storage{baseURL: "http://localhost:4443"}
	assert.Equal(t, "http://localhost:4443/media/avatars/a%20b.png", s.PublicURL("media", "avatars/a b.png"))

	var unset *Storage
	assert.Equal(t, "https://storage.googleapis.com/media/x.png", unset.PublicURL("media", "x.png"))
}

func TestUploadWithoutStorage(t *testing.T) {
	var s *Storage
	_, err := s.Upload(context.Background(), "media", "x.png", strings.NewReader("x"), UploadOptions{})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
