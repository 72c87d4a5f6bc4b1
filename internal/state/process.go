package state

import (
	"strings"
	"time"
)

const processCacheTTL = 50 * time.Millisecond

// ProcessInfo is a cached foreground process lookup. Name is empty when the lookup failed.
type ProcessInfo struct {
	Name      string
	Known     bool
	Timestamp time.Time
}

// IsProcessWhitelisted reports whether dispatch is allowed for the foreground process.
// An empty whitelist allows everything; a failed lookup allows dispatch as well.
func (s *State) IsProcessWhitelisted() bool {
	wl := *s.whitelist.Load()
	if len(wl) == 0 {
		return true
	}
	now := s.now()
	info := s.procCache.Load()
	if info.Timestamp.IsZero() || now.Sub(info.Timestamp) >= processCacheTTL {
		info = s.refreshProcess(now)
	}
	if !info.Known {
		return true
	}
	for _, name := range wl {
		if name == info.Name {
			return true
		}
	}
	return false
}

func (s *State) refreshProcess(now time.Time) *ProcessInfo {
	info := &ProcessInfo{Timestamp: now}
	name, err := s.process.ForegroundProcess()
	if err == nil {
		info.Name = baseName(name)
		info.Known = true
	}
	s.procCache.Store(info)
	return info
}

func (s *State) ProcessInfo() ProcessInfo {
	return *s.procCache.Load()
}

func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}
