package session

// FieldSink receives the result fields the engine writes back to the host
// form. Implementations are expected to dispatch whatever change
// notification their form framework needs to observe the update.
type FieldSink interface {
	SetField(name, value string)
}

// MapSink collects field writes in a map. It backs the HTTP responses and
// doubles as the test sink.
type MapSink struct {
	Fields map[string]string
	Writes int
}

// NewMapSink creates an empty MapSink.
func NewMapSink() *MapSink {
	return &MapSink{Fields: make(map[string]string)}
}

func (s *MapSink) SetField(name, value string) {
	s.Fields[name] = value
	s.Writes++
}
