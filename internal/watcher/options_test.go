package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_SetDefaults(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	assert.Equal(t, ModeNative, opts.Mode)
	assert.Equal(t, 2*time.Second, opts.PollInterval)
	assert.NotEmpty(t, opts.IgnorePatterns)
	assert.True(t, opts.IgnoreHidden)
}

func TestOptions_SetDefaults_RespectsExplicitPatterns(t *testing.T) {
	opts := Options{IgnorePatterns: []string{}}
	opts.setDefaults()

	assert.Empty(t, opts.IgnorePatterns)
	assert.False(t, opts.IgnoreHidden, "explicit empty patterns should not force IgnoreHidden")
}

func TestOptions_ShouldIgnore(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	tests := []struct {
		path string
		want bool
	}{
		{"/data/meme.jpg", false},
		{"/data/upload.tmp", true},
		{"/data/download.part", true},
		{"/data/.DS_Store", true},
		{"/data/.hidden.jpg", true},
		{"/data/Thumbs.db", true},
		{"/data/normal_name.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, opts.shouldIgnore(tt.path))
		})
	}
}
