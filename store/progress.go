package store

// ProgressMode tells a progress indicator what kind of work is running.
type ProgressMode string

const (
	ProgressIndeterminate ProgressMode = "indeterminate"
	ProgressQuery         ProgressMode = "query"
)

// Progress is the indicator an action drives while it runs. Every Show is followed by
// exactly one Done.
type Progress interface {
	Show(mode ProgressMode)
	Done()
}

type noProgress struct{}

func (noProgress) Show(ProgressMode) {}
func (noProgress) Done()             {}

func progressOrNone(p Progress) Progress {
	if p == nil {
		return noProgress{}
	}
	return p
}
