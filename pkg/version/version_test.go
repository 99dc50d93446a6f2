package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_String(t *testing.T) {
	info := Info{Version: "1.2.3", Commit: "abc", Date: "today", GoVersion: "go1.24", OS: "linux", Arch: "amd64"}

	assert.Equal(t, "outline-backup 1.2.3 (commit: abc, built: today, go1.24, linux/amd64)", info.String())
	assert.Equal(t, "outline-backup/1.2.3 (linux/amd64)", info.UserAgent())
}

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Commit)
}
