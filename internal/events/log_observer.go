package events

import "github.com/jonesrussell/siteatlas/internal/logger"

// LogObserver writes progress notifications to the structured log.
type LogObserver struct {
	logger logger.Interface
}

// NewLogObserver creates a logging observer.
func NewLogObserver(log logger.Interface) *LogObserver {
	return &LogObserver{logger: log.WithComponent("progress")}
}

// OnProgress logs loop progress.
func (o *LogObserver) OnProgress(jobID string, processed, total int, currentURL string) {
	o.logger.Info("Progress",
		"job_id", jobID,
		"processed", processed,
		"total", total,
		"url", currentURL)
}

// OnPageCompleted logs a stored page.
func (o *LogObserver) OnPageCompleted(jobID, url, title string) {
	o.logger.Info("Page completed",
		"job_id", jobID,
		"url", url,
		"title", title)
}

// OnExternalLink logs a boundary crossing.
func (o *LogObserver) OnExternalLink(jobID, from, to string) {
	o.logger.Debug("External link detected",
		"job_id", jobID,
		"from", from,
		"to", to)
}

// OnError logs a non-fatal error.
func (o *LogObserver) OnError(jobID, context, message string) {
	o.logger.Warn("Crawl error",
		"job_id", jobID,
		"context", context,
		"message", message)
}
