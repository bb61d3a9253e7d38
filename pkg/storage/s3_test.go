package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyFromPublicURL(t *testing.T) {
	assert.Equal(t, "events/abc.jpg",
		KeyFromPublicURL("https://agendaville-uploads.s3.eu-west-3.amazonaws.com/events/abc.jpg"))
	assert.Equal(t, "", KeyFromPublicURL("https://example.com/events/abc.jpg"))
	assert.Equal(t, "", KeyFromPublicURL("http://agendaville-uploads.s3.eu-west-3.amazonaws.com/events/abc.jpg"))
	assert.Equal(t, "", KeyFromPublicURL(""))
	assert.Equal(t, "", KeyFromPublicURL("::not-a-url"))
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey(FolderEvents, "Photo Été.JPG")
	assert.True(t, strings.HasPrefix(key, "events/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotContains(t, key, " ")

	// Two uploads of the same filename get distinct keys.
	assert.NotEqual(t, key, ObjectKey(FolderEvents, "Photo Été.JPG"))
}

func TestValidateImageType(t *testing.T) {
	assert.True(t, ValidateImageType("image/png", "icon.png"))
	assert.True(t, ValidateImageType("", "photo.webp"))
	assert.True(t, ValidateImageType("image/svg+xml", "logo.svg"))
	assert.False(t, ValidateImageType("application/pdf", "doc.pdf"))
	assert.False(t, ValidateImageType("", "archive.zip"))
}

func TestValidFolder(t *testing.T) {
	assert.True(t, ValidFolder(FolderEvents))
	assert.True(t, ValidFolder(FolderThemes))
	assert.True(t, ValidFolder(FolderAvatars))
	assert.False(t, ValidFolder("recordings"))
	assert.False(t, ValidFolder(""))
}
