package engine

import (
	"os"
	"sync"
)

// tmpSet holds the temporary files a copier has created but not yet
// published or removed.
type tmpSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

var inFlight tmpSet

func (s *tmpSet) add(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paths == nil {
		s.paths = make(map[string]struct{})
	}
	s.paths[path] = struct{}{}
}

func (s *tmpSet) remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.paths, path)
}

func (s *tmpSet) drain() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := s.paths
	s.paths = nil
	return paths
}

// RegisterTmp records a temporary file that must not outlive the process.
func RegisterTmp(path string) { inFlight.add(path) }

// DeregisterTmp forgets path once it has been published or removed.
func DeregisterTmp(path string) { inFlight.remove(path) }

// PendingTmp reports how many temporary files are registered.
func PendingTmp() int {
	inFlight.mu.Lock()
	defer inFlight.mu.Unlock()
	return len(inFlight.paths)
}

// CleanupTmpFiles removes every registered temporary file and returns the
// number actually deleted. It is meant for the interrupt path, where a copy
// may have been abandoned between create and publish.
func CleanupTmpFiles() int {
	removed := 0
	for p := range inFlight.drain() {
		if os.Remove(p) == nil {
			removed++
		}
	}
	return removed
}
