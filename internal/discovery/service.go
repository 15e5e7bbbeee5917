package discovery

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/strefethen/wam-hub-go/internal/wam"
)

// Snapshot is the hydrated initial state of one discovered speaker. The
// device is authoritative: a snapshot is valid only until the next refresh
// or command. When every hydration call fails Hydrated is false and only
// the address is meaningful.
type Snapshot struct {
	IP           string
	MAC          string
	Name         string
	LED          string
	Mute         string
	Volume       int
	GroupName    string
	Repeat       string
	APSSID       string
	Hydrated     bool
	DiscoveredAt time.Time
}

// Options bounds one discovery run. BindIP scopes the SSDP search to a
// local interface and comes from configuration; there is no process-wide
// default.
type Options struct {
	BindIP       string
	Passes       int
	PassInterval time.Duration
	Timeout      time.Duration

	// KnownIPs are probed directly when SSDP does not report them
	// (powered-on speakers sometimes miss a search window).
	KnownIPs []string
}

// Service enumerates WAM speakers reachable from a local interface and
// hydrates an initial snapshot per device.
type Service struct {
	client   *wam.Client
	resolver MACResolver
	locks    *wam.SpeakerLock
	logger   *log.Logger

	// searchFn is swapped in tests to avoid multicast traffic.
	searchFn func(ctx context.Context, bindIP string, passes int, passInterval, timeout time.Duration) ([]Response, error)
}

// NewService wires the hydration pipeline. locks should be the process-wide
// SpeakerLock so a refresh cannot interleave with commands or grouping steps
// addressed to the same device; nil creates a private one.
func NewService(client *wam.Client, resolver MACResolver, locks *wam.SpeakerLock, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if resolver == nil {
		resolver = &DeviceMACResolver{Client: client}
	}
	if locks == nil {
		locks = wam.NewSpeakerLock(0, logger)
	}
	return &Service{
		client:   client,
		resolver: resolver,
		locks:    locks,
		logger:   logger,
		searchFn: Search,
	}
}

// Discover runs an SSDP search and hydrates every matching device
// concurrently. Per-device hydration failures never abort the scan:
// SSDP-advertised speakers are returned even when fully unhydrated, while
// known-IP probes that answer nothing are dropped (they were never
// advertised this run). Result ordering follows response arrival and is
// not guaranteed.
func (s *Service) Discover(ctx context.Context, opts Options) ([]Snapshot, error) {
	responses, err := s.searchFn(ctx, opts.BindIP, opts.Passes, opts.PassInterval, opts.Timeout)
	if err != nil && len(responses) == 0 {
		return nil, err
	}
	s.logger.Printf("ssdp search returned %d wam responses", len(responses))

	seen := make(map[string]struct{})
	advertised := make([]string, 0, len(responses))
	for _, resp := range responses {
		host := ControlHost(resp)
		if host == "" {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		advertised = append(advertised, host)
	}

	probes := make([]string, 0, len(opts.KnownIPs))
	for _, ip := range opts.KnownIPs {
		if _, dup := seen[ip]; dup || ip == "" {
			continue
		}
		seen[ip] = struct{}{}
		probes = append(probes, ip)
	}

	type result struct {
		snapshot Snapshot
		probe    bool
	}

	results := make([]result, len(advertised)+len(probes))
	var wg sync.WaitGroup
	for i, host := range advertised {
		wg.Add(1)
		go func(idx int, ip string) {
			defer wg.Done()
			results[idx] = result{snapshot: s.Hydrate(ctx, ip)}
		}(i, host)
	}
	for i, host := range probes {
		wg.Add(1)
		go func(idx int, ip string) {
			defer wg.Done()
			results[idx] = result{snapshot: s.Hydrate(ctx, ip), probe: true}
		}(len(advertised)+i, host)
	}
	wg.Wait()

	snapshots := make([]Snapshot, 0, len(results))
	for _, r := range results {
		if r.probe && !r.snapshot.Hydrated {
			s.logger.Printf("known ip %s did not answer, dropping", r.snapshot.IP)
			continue
		}
		snapshots = append(snapshots, r.snapshot)
	}
	return snapshots, nil
}

// Hydrate queries the fixed attribute sequence (name, LED, mute, volume,
// group name, AP SSID, repeat mode, MAC) and returns a typed snapshot.
// The speaker's lock is held for the whole sequence so a rescan cannot
// interleave with commands or grouping steps on the same device; when the
// lock cannot be acquired the snapshot comes back unhydrated. Individual
// failures leave that field zero-valued; Hydrated reports whether any call
// succeeded.
func (s *Service) Hydrate(ctx context.Context, ip string) Snapshot {
	snapshot := Snapshot{IP: ip, DiscoveredAt: time.Now()}
	if err := s.locks.WithLock(ip, func() error {
		s.hydrate(ctx, ip, &snapshot)
		return nil
	}); err != nil {
		s.logger.Printf("hydrate %s: %v", ip, err)
	}
	return snapshot
}

func (s *Service) hydrate(ctx context.Context, ip string, snapshot *Snapshot) {
	succeeded := 0

	if name, err := s.client.SpeakerName(ctx, ip); err == nil {
		snapshot.Name = name
		succeeded++
	} else {
		s.logger.Printf("hydrate %s: name: %v", ip, err)
	}
	if led, err := s.client.LED(ctx, ip); err == nil {
		snapshot.LED = led
		succeeded++
	}
	if mute, err := s.client.Mute(ctx, ip); err == nil {
		snapshot.Mute = mute
		succeeded++
	}
	if volume, err := s.client.Volume(ctx, ip); err == nil {
		snapshot.Volume = volume
		succeeded++
	}
	if group, err := s.client.GroupName(ctx, ip); err == nil {
		snapshot.GroupName = group
		succeeded++
	}
	if ap, err := s.client.APInfo(ctx, ip); err == nil {
		snapshot.APSSID = ap.SSID
		succeeded++
	}
	if repeat, err := s.client.RepeatMode(ctx, ip); err == nil {
		snapshot.Repeat = repeat
		succeeded++
	}

	if mac, err := s.resolver.ResolveMAC(ctx, ip); err == nil {
		snapshot.MAC = mac
	} else {
		s.logger.Printf("hydrate %s: mac: %v", ip, err)
	}

	snapshot.Hydrated = succeeded > 0
}
