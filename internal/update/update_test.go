package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/relq/internal/version"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "1.0.0 < 1.0.1", a: "1.0.0", b: "1.0.1", want: -1},
		{name: "1.0.1 > 1.0.0", a: "1.0.1", b: "1.0.0", want: 1},
		{name: "1.0.0 == 1.0.0", a: "1.0.0", b: "1.0.0", want: 0},
		{name: "v1.0.0 < 1.0.1", a: "v1.0.0", b: "1.0.1", want: -1},
		{name: "v1.0.0 == v1.0.0", a: "v1.0.0", b: "v1.0.0", want: 0},
		{name: "2.0.0 > 1.9.9", a: "2.0.0", b: "1.9.9", want: 1},
		{name: "dev > 1.0.0", a: "dev", b: "1.0.0", want: 1},
		{name: "1.0.0 < dev", a: "1.0.0", b: "dev", want: -1},
		{name: "1.0.0-beta == 1.0.0", a: "1.0.0-beta", b: "1.0.0", want: 0},
		{name: "1.2 == 1.2.0", a: "1.2", b: "1.2.0", want: 0},
		{name: "0.10.0 > 0.9.0", a: "0.10.0", b: "0.9.0", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareVersions(tt.a, tt.b))
		})
	}
}

func TestCheckWithCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"tag_name": "v9.1.0", "html_url": "https://github.com/pthm/relq/releases/v9.1.0"}`))
	}))
	defer srv.Close()

	old, oldVersion := releasesURL, version.Version
	releasesURL, version.Version = srv.URL, "1.0.0"
	t.Cleanup(func() { releasesURL, version.Version = old, oldVersion })

	info, err := CheckWithCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9.1.0", info.LatestVersion)
	assert.Equal(t, "1.0.0", info.CurrentVersion)
	assert.True(t, info.UpdateAvailable)

	// Served from the cache
	info, err = CheckWithCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9.1.0", info.LatestVersion)
	assert.Equal(t, 1, calls)
	assert.WithinDuration(t, time.Now(), info.CheckedAt, time.Minute)
}

func TestCheck_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	old := releasesURL
	releasesURL = srv.URL
	t.Cleanup(func() { releasesURL = old })

	_, err := check(context.Background(), "1.0.0")
	assert.ErrorContains(t, err, "status 403")
}

func TestCacheDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", home)

	dir, err := cacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "relq"), dir)
}
