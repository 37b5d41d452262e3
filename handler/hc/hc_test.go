package hc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/store/db/dbtest"
	"github.com/pandodao/safe-pay/store/property"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	properties := property.New(dbtest.New(t))
	h := Handler("1.0.0", properties)

	get := func() map[string]any {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hc", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		return body
	}

	body := get()
	assert.Equal(t, "1.0.0", body["version"])
	assert.NotContains(t, body, "monitor_last_tick")

	require.NoError(t, properties.Set(context.Background(), core.PropertyMonitorLastTick, time.Now().UTC()))
	assert.Contains(t, get(), "monitor_last_tick")
}
