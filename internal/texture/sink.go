package texture

// ProgressSink receives loading-indicator updates while a composite is built.
// Update is called after every tile resolution, successful or not.
type ProgressSink interface {
	Show()
	Update(loaded, total int)
	Hide()
}

// SinkFuncs adapts plain functions to ProgressSink; nil fields are skipped
type SinkFuncs struct {
	OnShow   func()
	OnUpdate func(loaded, total int)
	OnHide   func()
}

func (s SinkFuncs) Show() {
	if s.OnShow != nil {
		s.OnShow()
	}
}

func (s SinkFuncs) Update(loaded, total int) {
	if s.OnUpdate != nil {
		s.OnUpdate(loaded, total)
	}
}

func (s SinkFuncs) Hide() {
	if s.OnHide != nil {
		s.OnHide()
	}
}

type nopSink struct{}

func (nopSink) Show()           {}
func (nopSink) Update(int, int) {}
func (nopSink) Hide()           {}
