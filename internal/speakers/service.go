package speakers

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/strefethen/wam-hub-go/internal/config"
	"github.com/strefethen/wam-hub-go/internal/discovery"
	"github.com/strefethen/wam-hub-go/internal/wam"
)

// discoverer is the slice of discovery.Service the registry needs.
type discoverer interface {
	Discover(ctx context.Context, opts discovery.Options) ([]discovery.Snapshot, error)
	Hydrate(ctx context.Context, ip string) discovery.Snapshot
}

// Publisher receives registry change notifications. Implementations must
// not block.
type Publisher interface {
	Publish(eventType string, payload any)
}

type scanResult struct {
	found      int
	durationMs int64
	err        error
}

// Service is the speaker registry. It owns the in-memory cache keyed by
// MAC, merges discovery results into it, and fronts every device command
// so cached state stays current. Each command holds the speaker's lock
// while it talks to the device, so direct commands cannot interleave with
// grouping steps or a rescan on the same address.
type Service struct {
	cfg       config.Config
	logger    *log.Logger
	client    *wam.Client
	locks     *wam.SpeakerLock
	disco     discoverer
	repo      *Repository
	publisher Publisher

	mu    sync.RWMutex
	byMAC map[string]Speaker

	scanMu       sync.Mutex
	scanInFlight bool
	scanWaiters  []chan scanResult
}

// NewService creates the registry. locks should be the process-wide
// SpeakerLock shared with the group coordinator and discovery; nil creates
// a private one.
func NewService(cfg config.Config, logger *log.Logger, client *wam.Client, locks *wam.SpeakerLock, disco discoverer, repo *Repository, publisher Publisher) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if locks == nil {
		locks = wam.NewSpeakerLock(0, logger)
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		locks:     locks,
		disco:     disco,
		repo:      repo,
		publisher: publisher,
		byMAC:     make(map[string]Speaker),
	}
}

// Bootstrap seeds the cache from the database and the optional legacy
// speakers file. Cached entries start unhydrated until a scan or refresh
// confirms them.
func (s *Service) Bootstrap() error {
	if s.repo != nil {
		stored, err := s.repo.List()
		if err != nil {
			return err
		}
		s.mu.Lock()
		for _, speaker := range stored {
			s.byMAC[speaker.MAC] = speaker
		}
		s.mu.Unlock()
	}

	if s.cfg.SpeakersFile != "" {
		imported, err := LoadLegacyFile(s.cfg.SpeakersFile)
		if err != nil {
			s.logger.Printf("Legacy speakers file skipped: %v", err)
			return nil
		}
		s.mu.Lock()
		for _, speaker := range imported {
			if speaker.MAC == "" {
				continue
			}
			if _, exists := s.byMAC[speaker.MAC]; !exists {
				s.byMAC[speaker.MAC] = speaker
			}
		}
		s.mu.Unlock()
	}
	return nil
}

// List returns all known speakers sorted by name.
func (s *Service) List() []Speaker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	speakers := make([]Speaker, 0, len(s.byMAC))
	for _, speaker := range s.byMAC {
		speakers = append(speakers, speaker)
	}
	sort.Slice(speakers, func(i, j int) bool {
		if speakers[i].Name != speakers[j].Name {
			return speakers[i].Name < speakers[j].Name
		}
		return speakers[i].MAC < speakers[j].MAC
	})
	return speakers
}

// Get looks a speaker up by MAC or by IP. Returns nil when unknown.
func (s *Service) Get(id string) *Speaker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if speaker, ok := s.byMAC[normalizeMAC(id)]; ok {
		return &speaker
	}
	for _, speaker := range s.byMAC {
		if speaker.IP == id {
			return &speaker
		}
	}
	return nil
}

// Rescan runs a discovery pass and merges the results into the registry.
// Concurrent callers share a single in-flight scan.
func (s *Service) Rescan(ctx context.Context) (int, int64, error) {
	s.scanMu.Lock()
	if s.scanInFlight {
		ch := make(chan scanResult, 1)
		s.scanWaiters = append(s.scanWaiters, ch)
		s.scanMu.Unlock()
		result := <-ch
		return result.found, result.durationMs, result.err
	}
	s.scanInFlight = true
	s.scanMu.Unlock()

	result := s.runScan(ctx)

	s.scanMu.Lock()
	waiters := s.scanWaiters
	s.scanWaiters = nil
	s.scanInFlight = false
	s.scanMu.Unlock()

	for _, ch := range waiters {
		ch <- result
		close(ch)
	}

	return result.found, result.durationMs, result.err
}

func (s *Service) runScan(ctx context.Context) scanResult {
	start := time.Now()

	knownIPs := append([]string{}, s.cfg.StaticSpeakerIPs...)
	s.mu.RLock()
	for _, speaker := range s.byMAC {
		if speaker.IP != "" {
			knownIPs = append(knownIPs, speaker.IP)
		}
	}
	s.mu.RUnlock()

	snapshots, err := s.disco.Discover(ctx, discovery.Options{
		BindIP:       s.cfg.DiscoveryBindIP,
		Passes:       s.cfg.SSDPDiscoveryPasses,
		PassInterval: time.Duration(s.cfg.SSDPPassIntervalMs) * time.Millisecond,
		Timeout:      time.Duration(s.cfg.SSDPDiscoveryTimeoutMs) * time.Millisecond,
		KnownIPs:     dedupeStrings(knownIPs),
	})
	if err != nil {
		return scanResult{err: err}
	}

	for _, snap := range snapshots {
		s.merge(fromSnapshot(snap))
	}

	if s.publisher != nil {
		s.publisher.Publish("speakers.rescanned", map[string]any{
			"found":       len(snapshots),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}

	return scanResult{found: len(snapshots), durationMs: time.Since(start).Milliseconds()}
}

// Refresh re-hydrates a single speaker and updates the cache.
func (s *Service) Refresh(ctx context.Context, id string) (*Speaker, error) {
	speaker := s.Get(id)
	if speaker == nil {
		return nil, nil
	}

	snap := s.disco.Hydrate(ctx, speaker.IP)
	refreshed := fromSnapshot(snap)
	if refreshed.MAC == "" {
		refreshed.MAC = speaker.MAC
	}
	refreshed.CreatedAt = speaker.CreatedAt
	s.merge(refreshed)

	updated := s.Get(refreshed.MAC)
	return updated, nil
}

// merge folds one speaker into the cache and persists it. Speakers without
// a MAC cannot be merged; the IP is too unstable to key on.
func (s *Service) merge(speaker Speaker) {
	if speaker.MAC == "" {
		s.logger.Printf("Discarding speaker without MAC ip=%s", speaker.IP)
		return
	}

	s.mu.Lock()
	existing, exists := s.byMAC[speaker.MAC]
	if exists {
		if speaker.CreatedAt.IsZero() {
			speaker.CreatedAt = existing.CreatedAt
		}
		if !speaker.Hydrated {
			// Keep the richer cached state for an unconfirmed sighting.
			existing.IP = speaker.IP
			existing.LastSeenAt = speaker.LastSeenAt
			speaker = existing
		}
	}
	s.byMAC[speaker.MAC] = speaker
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Upsert(speaker); err != nil {
			s.logger.Printf("Persist speaker %s failed: %v", speaker.MAC, err)
		}
	}
}

// mutate applies fn to the cached speaker and persists the result.
func (s *Service) mutate(mac string, fn func(*Speaker)) *Speaker {
	s.mu.Lock()
	speaker, ok := s.byMAC[mac]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	fn(&speaker)
	s.byMAC[mac] = speaker
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Upsert(speaker); err != nil {
			s.logger.Printf("Persist speaker %s failed: %v", mac, err)
		}
	}
	s.publishUpdate(speaker)
	return &speaker
}

func (s *Service) publishUpdate(speaker Speaker) {
	if s.publisher != nil {
		s.publisher.Publish("speaker.updated", speaker)
	}
}

// ExportLegacy writes the registry to the legacy speakers file when one is
// configured.
func (s *Service) ExportLegacy() error {
	if s.cfg.SpeakersFile == "" {
		return nil
	}
	return SaveLegacyFile(s.cfg.SpeakersFile, s.List())
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
