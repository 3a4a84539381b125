package profiler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitabwire/messageformat/config"
	"github.com/pitabwire/messageformat/profiler"
)

func TestServer_StartIfEnabled(t *testing.T) {
	tests := []struct {
		name          string
		enable        bool
		expectRunning bool
	}{
		{name: "profiler disabled", enable: false, expectRunning: false},
		{name: "profiler enabled", enable: true, expectRunning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.ConfigurationDefault{ProfilerEnable: tt.enable, ProfilerPortAddr: "127.0.0.1:0"}
			server := profiler.NewServer()
			ctx := t.Context()

			require.NoError(t, server.StartIfEnabled(ctx, cfg))
			assert.Equal(t, tt.expectRunning, server.IsRunning())

			if tt.expectRunning {
				require.NotNil(t, server.Addr())

				req, err := http.NewRequestWithContext(ctx, http.MethodGet,
					"http://"+server.Addr().String()+"/debug/pprof/", nil)
				require.NoError(t, err)
				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)
				_ = resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}

			require.NoError(t, server.Stop(context.Background()))
			assert.False(t, server.IsRunning())
		})
	}
}

func TestServer_StartFailsOnBadAddress(t *testing.T) {
	cfg := &config.ConfigurationDefault{ProfilerEnable: true, ProfilerPortAddr: "not-an-address"}
	server := profiler.NewServer()

	require.Error(t, server.StartIfEnabled(t.Context(), cfg))
	assert.False(t, server.IsRunning())
}

func TestHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	profiler.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
