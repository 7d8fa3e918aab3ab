package command

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryReporter captures handler faults on a clone of the given hub.
type SentryReporter struct {
	hub *sentry.Hub
}

func NewSentryReporter(hub *sentry.Hub) *SentryReporter {
	return &SentryReporter{hub: hub}
}

func (r *SentryReporter) ReportFault(err error, tags map[string]string) string {
	hub := r.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if id := tags["user"]; id != "" {
			scope.SetUser(sentry.User{ID: id})
		}
	})

	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  "command",
		Message:   tags["command"],
		Level:     sentry.LevelError,
		Timestamp: time.Now().UTC(),
	}, nil)

	// No client or a dropped event: there is no code worth showing.
	id := hub.CaptureException(err)
	if id == nil {
		return ""
	}
	return string(*id)
}
