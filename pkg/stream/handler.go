package stream

// Handler receives the events of one stream session.
//
// OnDelta is called with the full text accumulated so far, never just the
// increment, so consumers can re-derive views from the whole text each tick.
// OnComplete fires exactly once at end of data. OnError is reserved for
// transport failures; voluntary cancellation is not reported.
type Handler interface {
	OnDelta(text string)
	OnComplete(fullText string)
	OnError(err error)
}

// HandlerFunc is a function adapter for Handler interface
type HandlerFunc struct {
	DeltaFunc    func(text string)
	CompleteFunc func(fullText string)
	ErrorFunc    func(err error)
}

// OnDelta implements Handler
func (h HandlerFunc) OnDelta(text string) {
	if h.DeltaFunc != nil {
		h.DeltaFunc(text)
	}
}

// OnComplete implements Handler
func (h HandlerFunc) OnComplete(fullText string) {
	if h.CompleteFunc != nil {
		h.CompleteFunc(fullText)
	}
}

// OnError implements Handler
func (h HandlerFunc) OnError(err error) {
	if h.ErrorFunc != nil {
		h.ErrorFunc(err)
	}
}

// Ensure HandlerFunc implements Handler
var _ Handler = HandlerFunc{}
