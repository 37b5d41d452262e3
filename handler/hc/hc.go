package hc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pandodao/safe-pay/core"
)

func Handler(version string, properties core.PropertyStore) http.Handler {
	t := time.Now()
	fn := func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"version": version,
			"uptime":  time.Since(t).String(),
		}

		var lastTick time.Time
		if err := properties.Get(r.Context(), core.PropertyMonitorLastTick, &lastTick); err == nil && !lastTick.IsZero() {
			body["monitor_last_tick"] = lastTick
			body["monitor_lag"] = time.Since(lastTick).Round(time.Second).String()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	}

	return http.HandlerFunc(fn)
}
