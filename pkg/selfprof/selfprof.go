// Package selfprof records pprof profiles of the running process. The
// files it writes can be fed back into the pprof importer.
package selfprof

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
)

// ProfileType defines the type of profile to collect.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

// AllProfileTypes returns all supported profile types.
func AllProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine, ProfileBlock, ProfileMutex, ProfileAllocs}
}

// DefaultProfileTypes returns the profiles collected when none are named.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap}
}

// ParseProfileTypes parses a comma-separated list such as "cpu,heap".
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultProfileTypes(), nil
	}
	valid := make(map[ProfileType]bool)
	for _, pt := range AllProfileTypes() {
		valid[pt] = true
	}

	var types []ProfileType
	for _, p := range strings.Split(s, ",") {
		pt := ProfileType(strings.TrimSpace(strings.ToLower(p)))
		if !valid[pt] {
			return nil, fmt.Errorf("unknown profile type: %q", p)
		}
		types = append(types, pt)
	}
	return types, nil
}

// Config holds the recording configuration.
type Config struct {
	// Dir receives one <type>.pprof file per profile.
	Dir      string
	Profiles []ProfileType
}

// Session is an active recording. CPU profiling runs from Start to Stop;
// the other profiles are snapshotted at Stop.
type Session struct {
	cfg     Config
	mu      sync.Mutex
	cpuFile *os.File
	stopped bool
}

// Start begins recording.
func Start(cfg Config) (*Session, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = DefaultProfileTypes()
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &Session{cfg: cfg}
	for _, pt := range cfg.Profiles {
		switch pt {
		case ProfileCPU:
			f, err := os.Create(s.path(pt))
			if err != nil {
				return nil, fmt.Errorf("failed to create CPU profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to start CPU profile: %w", err)
			}
			s.cpuFile = f
		case ProfileBlock:
			runtime.SetBlockProfileRate(1)
		case ProfileMutex:
			runtime.SetMutexProfileFraction(1)
		}
	}
	return s, nil
}

// Stop ends recording and returns the files written. Calling Stop twice
// is a no-op.
func (s *Session) Stop() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, nil
	}
	s.stopped = true

	var (
		files []string
		errs  []string
	)
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := s.cpuFile.Close(); err != nil {
			errs = append(errs, err.Error())
		} else {
			files = append(files, s.cpuFile.Name())
		}
	}

	for _, pt := range s.cfg.Profiles {
		if pt == ProfileCPU {
			continue
		}
		path, err := s.snapshot(pt)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		files = append(files, path)
	}

	for _, pt := range s.cfg.Profiles {
		switch pt {
		case ProfileBlock:
			runtime.SetBlockProfileRate(0)
		case ProfileMutex:
			runtime.SetMutexProfileFraction(0)
		}
	}

	if len(errs) > 0 {
		return files, fmt.Errorf("failed to write profiles: %s", strings.Join(errs, "; "))
	}
	return files, nil
}

func (s *Session) snapshot(pt ProfileType) (string, error) {
	p := pprof.Lookup(string(pt))
	if p == nil {
		return "", fmt.Errorf("%s profile not found", pt)
	}
	if pt == ProfileHeap {
		runtime.GC()
	}

	path := s.path(pt)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s profile: %w", pt, err)
	}
	defer f.Close()
	if err := p.WriteTo(f, 0); err != nil {
		return "", fmt.Errorf("failed to write %s profile: %w", pt, err)
	}
	return path, nil
}

func (s *Session) path(pt ProfileType) string {
	return filepath.Join(s.cfg.Dir, string(pt)+".pprof")
}
