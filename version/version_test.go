package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pitabwire/messageformat/version"
)

func TestString(t *testing.T) {
	v, commit, date := version.Version, version.Commit, version.Date
	t.Cleanup(func() {
		version.Version, version.Commit, version.Date = v, commit, date
	})

	version.Version, version.Commit, version.Date = "", "", ""
	assert.True(t, strings.HasPrefix(version.String(), version.Repository+" "))

	version.Version, version.Commit, version.Date = "v1.2.3", "abc123", "2026-01-02"
	assert.Equal(t, version.Repository+" v1.2.3 (abc123, 2026-01-02)", version.String())

	version.Date = ""
	assert.Equal(t, version.Repository+" v1.2.3 (abc123)", version.String())
}
