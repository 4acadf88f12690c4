// Package events provides best-effort, fan-out delivery of crawl progress
// notifications. A failing or panicking sink is isolated; it never aborts
// or blocks the crawl loop.
package events

// Observer receives progress notifications from the pipeline. Delivery is
// fire-and-forget; implementations must not assume ordering across jobs.
type Observer interface {
	// OnProgress reports loop progress for a job.
	OnProgress(jobID string, processed, total int, currentURL string)
	// OnPageCompleted reports a successfully stored page.
	OnPageCompleted(jobID, url, title string)
	// OnExternalLink reports a link crossing the domain boundary.
	OnExternalLink(jobID, from, to string)
	// OnError reports a non-fatal error with its context.
	OnError(jobID, context, message string)
}
