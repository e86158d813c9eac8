package kvstore

import (
	"context"
	"time"

	"github.com/careplanner/backend/internal/metrics"
)

// instrumented records operation latency per driver
type instrumented struct {
	next   Storage
	driver string
}

// Instrument wraps next so each call is observed in Prometheus under driver
func Instrument(next Storage, driver string) Storage {
	return &instrumented{next: next, driver: driver}
}

func (i *instrumented) GetItem(ctx context.Context, key string) ([]byte, error) {
	defer observe(i.driver, "get", time.Now())
	return i.next.GetItem(ctx, key)
}

func (i *instrumented) SetItem(ctx context.Context, key string, value []byte) error {
	defer observe(i.driver, "set", time.Now())
	return i.next.SetItem(ctx, key, value)
}

func (i *instrumented) RemoveItem(ctx context.Context, key string) error {
	defer observe(i.driver, "remove", time.Now())
	return i.next.RemoveItem(ctx, key)
}

func observe(driver, op string, start time.Time) {
	metrics.ObserveStorageOperation(driver, op, time.Since(start))
}
