package view

import "log/slog"

// Notifier delivers the one-line notifications a Board raises.
type Notifier interface {
	Success(msg string)
	Failure(msg string)
}

// LogNotifier writes notifications to a slog logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(msg string) {
	n.logger.Info(msg, slog.String("notice", "success"))
}

func (n *LogNotifier) Failure(msg string) {
	n.logger.Error(msg, slog.String("notice", "failure"))
}
