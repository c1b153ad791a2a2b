// Package telemetry ships analysis alerts to an observability backend.
package telemetry

import (
	"context"
	"errors"

	"geointel/internal/alerting"
)

// AlertEmitter emits alerts (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type AlertEmitter interface {
	Emit(ctx context.Context, alert alerting.Alert) error
}

// Fanout emits each alert to every non-nil emitter and joins their errors.
func Fanout(emitters ...AlertEmitter) AlertEmitter {
	var live multiEmitter
	for _, e := range emitters {
		if e != nil {
			live = append(live, e)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return live
}

type multiEmitter []AlertEmitter

func (m multiEmitter) Emit(ctx context.Context, alert alerting.Alert) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
