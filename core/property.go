package core

import "context"

// PropertyMonitorLastTick holds the time the reconciliation monitor last
// finished a sweep.
const PropertyMonitorLastTick = "monitor_last_tick"

type PropertyStore interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any) error
}
