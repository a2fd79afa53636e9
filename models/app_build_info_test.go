package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppBuildInfo_WithDefaults(t *testing.T) {
	info := NewAppBuildInfo("1.4.0", "", "").WithDefaults()

	assert.Equal(t, "1.4.0", info.BuildVersion())
	assert.Equal(t, "N/A", info.BuildDate())
	assert.Equal(t, "N/A", info.BuildCommit())
}

func TestAppBuildInfo_String(t *testing.T) {
	assert.Equal(t,
		"Build version: 2.0.1\nBuild date: N/A\nBuild commit: beef\n",
		NewAppBuildInfo("2.0.1", "", "beef").String())
	assert.Empty(t, NewAppBuildInfo("", "", "").BuildVersion(), "raw info keeps empty fields")
}
