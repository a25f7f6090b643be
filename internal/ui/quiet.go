package ui

// quietPresenter drains the event stream without rendering anything. The
// engine blocks on a full channel, so the events still have to be read.
type quietPresenter struct{}

func (quietPresenter) Run(events <-chan Event) error {
	for range events { //nolint:revive // empty-block: draining
	}
	return nil
}

func (quietPresenter) Summary() string { return "" }
