package telemetry

import (
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Init configures the shared structured logger. JSON output everywhere
// except development, where colored text is easier to scan.
func Init(level string, environment string) {
	log.Out = os.Stdout

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	if environment == "development" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			PadLevelText:  true,
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

// Logger exposes the shared logger for request-scoped logging outside the
// failure/recovery channel.
func Logger() *logrus.Logger {
	return log
}

// LogFailure records an expected failure on the resilience channel.
// Fire-and-forget: it never blocks or errors back to the caller.
func LogFailure(event string, sessionID uuid.UUID, reason string) {
	entry := log.WithFields(logrus.Fields{
		"event":  event,
		"reason": reason,
	})
	if sessionID != uuid.Nil {
		entry = entry.WithField("session_id", sessionID.String())
	}
	entry.Warn("resilience_failure")
}

// LogRecovery records a degraded-but-recovered outcome or a notable
// success-path decision (e.g. token reused vs minted).
func LogRecovery(event string, sessionID uuid.UUID, detail string) {
	entry := log.WithFields(logrus.Fields{
		"event":  event,
		"detail": detail,
	})
	if sessionID != uuid.Nil {
		entry = entry.WithField("session_id", sessionID.String())
	}
	entry.Info("resilience_recovery")
}
