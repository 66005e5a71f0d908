package session

// Level is the severity of a flash message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelDanger  Level = "danger"
	LevelInfo    Level = "info"
)

// Flash is a one-shot status message shown on the next rendered page.
type Flash struct {
	Level   Level
	Message string
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(level Level, message string) {
	s.mu.Lock()
	s.flashes = append(s.flashes, Flash{Level: level, Message: message})
	s.mu.Unlock()
}

// PopFlashes returns the queued messages and clears them.
func (s *Session) PopFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	flashes := s.flashes
	s.flashes = nil
	return flashes
}
