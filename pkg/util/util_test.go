package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatDuration(0))
	assert.Equal(t, "00:00:01.500", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "00:02:05.000", FormatDuration(125*time.Second))
	assert.Equal(t, "01:00:00.000", FormatDuration(time.Hour))
}

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 30.0, ParseFrameRate("30/1"), 1e-9)
	assert.InDelta(t, 29.97, ParseFrameRate("30000/1001"), 1e-2)
	assert.Zero(t, ParseFrameRate("30"))
	assert.Zero(t, ParseFrameRate("30/0"))
	assert.Zero(t, ParseFrameRate("x/y"))
}

func TestSecondsRoundTrip(t *testing.T) {
	d := 2500 * time.Millisecond
	assert.Equal(t, d, FromSeconds(Seconds(d)))
}

func TestIsVideoFile(t *testing.T) {
	assert.True(t, IsVideoFile("clip.mp4"))
	assert.True(t, IsVideoFile("CLIP.MOV"))
	assert.True(t, IsVideoFile("/some/dir/raw.webm"))
	assert.False(t, IsVideoFile("notes.txt"))
	assert.False(t, IsVideoFile("archive.mp4.bak"))
	assert.False(t, IsVideoFile("noextension"))
}

func TestDiscoverVideos(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.mov", "readme.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.mp4"), 0755))

	videos, err := DiscoverVideos(dir)
	require.NoError(t, err)

	require.Len(t, videos, 2)
	assert.Equal(t, filepath.Join(dir, "a.mov"), videos[0])
	assert.Equal(t, filepath.Join(dir, "b.mp4"), videos[1])
}

func TestDiscoverVideosMissingDir(t *testing.T) {
	_, err := DiscoverVideos(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
