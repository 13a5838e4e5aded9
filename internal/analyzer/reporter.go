package analyzer

// Reporter is how the pipeline talks to the presentation layer. Calls are
// fire-and-forget: implementations must not block the worker, and the
// pipeline never reads anything back. ChallengeRequired fires at most once
// per row, when every fetch attempt failed and a human needs to solve the
// bot challenge in a real browser before re-running.
type Reporter interface {
	Progress(percent int)
	Status(status string)
	Log(line string)
	ChallengeRequired(url string)
}

// Terminal statuses passed to Reporter.Status.
const (
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// NopReporter discards everything. Useful default for tests.
type NopReporter struct{}

func (NopReporter) Progress(int)             {}
func (NopReporter) Status(string)            {}
func (NopReporter) Log(string)               {}
func (NopReporter) ChallengeRequired(string) {}
