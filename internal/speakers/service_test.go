package speakers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strefethen/wam-hub-go/internal/config"
	"github.com/strefethen/wam-hub-go/internal/discovery"
	"github.com/strefethen/wam-hub-go/internal/wam"
)

// fakeDiscoverer replays canned snapshots and records hydrate calls.
type fakeDiscoverer struct {
	snapshots   []discovery.Snapshot
	err         error
	scanCount   int
	scanMu      sync.Mutex
	hydrated    []string
	hydrateWith discovery.Snapshot
}

func (f *fakeDiscoverer) Discover(_ context.Context, _ discovery.Options) ([]discovery.Snapshot, error) {
	f.scanMu.Lock()
	f.scanCount++
	f.scanMu.Unlock()
	return f.snapshots, f.err
}

func (f *fakeDiscoverer) Hydrate(_ context.Context, ip string) discovery.Snapshot {
	f.scanMu.Lock()
	f.hydrated = append(f.hydrated, ip)
	f.scanMu.Unlock()
	snap := f.hydrateWith
	snap.IP = ip
	return snap
}

// okDevice answers every UIC command with an ok envelope and records the
// decoded command fragments.
type okDevice struct {
	server *httptest.Server
	mu     sync.Mutex
	seen   []string
}

func newOKDevice(t *testing.T) *okDevice {
	t.Helper()
	device := &okDevice{}
	device.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device.mu.Lock()
		device.seen = append(device.seen, r.URL.Query().Get("cmd"))
		device.mu.Unlock()
		endpoint := strings.Trim(r.URL.Path, "/")
		fmt.Fprintf(w, `<%s><response result="ok"></response></%s>`, endpoint, endpoint)
	}))
	t.Cleanup(device.server.Close)
	return device
}

func (d *okDevice) addr() string {
	return strings.TrimPrefix(d.server.URL, "http://")
}

func (d *okDevice) commandCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func newTestService(disco *fakeDiscoverer) *Service {
	return newTestServiceWithLocks(disco, nil)
}

func newTestServiceWithLocks(disco *fakeDiscoverer, locks *wam.SpeakerLock) *Service {
	cfg := config.Config{
		SSDPDiscoveryPasses:    1,
		SSDPPassIntervalMs:     10,
		SSDPDiscoveryTimeoutMs: 100,
	}
	client := wam.NewClient(2 * time.Second)
	return NewService(cfg, nil, client, locks, disco, nil, nil)
}

func kitchenSnapshot(ip string) discovery.Snapshot {
	return discovery.Snapshot{
		IP:           ip,
		MAC:          "AA:BB:CC:00:00:01",
		Name:         "Kitchen",
		LED:          "on",
		Mute:         "off",
		Volume:       10,
		GroupName:    "",
		Hydrated:     true,
		DiscoveredAt: time.Now(),
	}
}

func TestRescan_MergesSnapshots(t *testing.T) {
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot("192.168.1.10")}}
	service := newTestService(disco)

	count, _, err := service.Rescan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	speaker := service.Get("aa:bb:cc:00:00:01")
	require.NotNil(t, speaker)
	require.Equal(t, "Kitchen", speaker.Name)
	require.True(t, speaker.LEDOn)
	require.False(t, speaker.Muted)
	require.Equal(t, 10, speaker.Volume)
	require.True(t, speaker.Hydrated)
}

func TestRescan_LookupByIP(t *testing.T) {
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot("192.168.1.10")}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	require.NotNil(t, service.Get("192.168.1.10"))
	require.Nil(t, service.Get("192.168.1.99"))
}

func TestRescan_DropsSpeakersWithoutMAC(t *testing.T) {
	snap := kitchenSnapshot("192.168.1.10")
	snap.MAC = ""
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{snap}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)
	require.Empty(t, service.List())
}

func TestRescan_UnhydratedSightingKeepsCachedState(t *testing.T) {
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot("192.168.1.10")}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	// Next scan sees the same MAC at a new IP but hydration failed.
	ghost := discovery.Snapshot{
		IP:           "192.168.1.42",
		MAC:          "aa:bb:cc:00:00:01",
		Hydrated:     false,
		DiscoveredAt: time.Now(),
	}
	disco.snapshots = []discovery.Snapshot{ghost}
	_, _, err = service.Rescan(context.Background())
	require.NoError(t, err)

	speaker := service.Get("aa:bb:cc:00:00:01")
	require.NotNil(t, speaker)
	require.Equal(t, "192.168.1.42", speaker.IP)
	require.Equal(t, "Kitchen", speaker.Name)
	require.Equal(t, 10, speaker.Volume)
}

func TestRefresh_UpdatesCache(t *testing.T) {
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot("192.168.1.10")}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	refreshed := kitchenSnapshot("192.168.1.10")
	refreshed.Volume = 25
	refreshed.Name = "Kitchen Loud"
	disco.hydrateWith = refreshed

	speaker, err := service.Refresh(context.Background(), "aa:bb:cc:00:00:01")
	require.NoError(t, err)
	require.NotNil(t, speaker)
	require.Equal(t, 25, speaker.Volume)
	require.Equal(t, "Kitchen Loud", speaker.Name)
	require.Equal(t, []string{"192.168.1.10"}, disco.hydrated)
}

func TestRefresh_UnknownSpeaker(t *testing.T) {
	service := newTestService(&fakeDiscoverer{})

	speaker, err := service.Refresh(context.Background(), "no-such-id")
	require.NoError(t, err)
	require.Nil(t, speaker)
}

func TestSetVolume_UpdatesCachedState(t *testing.T) {
	device := newOKDevice(t)
	snap := kitchenSnapshot(device.addr())
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{snap}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	speaker, err := service.SetVolume(context.Background(), "aa:bb:cc:00:00:01", 20)
	require.NoError(t, err)
	require.Equal(t, 20, speaker.Volume)
	require.Equal(t, 1, device.commandCount())
}

func TestSetVolume_ClampRecordedInCache(t *testing.T) {
	device := newOKDevice(t)
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot(device.addr())}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	speaker, err := service.SetVolume(context.Background(), "aa:bb:cc:00:00:01", 99)
	require.NoError(t, err)
	require.Equal(t, wam.VolumeMax, speaker.Volume)
}

func TestSetVolume_ValidationDoesNotTouchCache(t *testing.T) {
	device := newOKDevice(t)
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot(device.addr())}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	_, err = service.SetVolume(context.Background(), "aa:bb:cc:00:00:01", -1)
	var invalid *wam.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 0, device.commandCount())
	require.Equal(t, 10, service.Get("aa:bb:cc:00:00:01").Volume)
}

func TestCommands_WaitOnSpeakerLock(t *testing.T) {
	device := newOKDevice(t)
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot(device.addr())}}
	locks := wam.NewSpeakerLock(30*time.Millisecond, nil)
	service := newTestServiceWithLocks(disco, locks)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	// A grouping run holds this speaker; direct commands must not reach
	// the device until it releases.
	require.True(t, locks.TryLock(device.addr()))

	_, err = service.SetVolume(context.Background(), "aa:bb:cc:00:00:01", 20)
	require.ErrorIs(t, err, wam.ErrLockTimeout)
	err = service.PlaybackControl(context.Background(), "aa:bb:cc:00:00:01", "play")
	require.ErrorIs(t, err, wam.ErrLockTimeout)
	require.Equal(t, 0, device.commandCount())

	// Cached state untouched by the rejected command.
	require.Equal(t, 10, service.Get("aa:bb:cc:00:00:01").Volume)

	locks.Unlock(device.addr())
	speaker, err := service.SetVolume(context.Background(), "aa:bb:cc:00:00:01", 20)
	require.NoError(t, err)
	require.Equal(t, 20, speaker.Volume)
	require.Equal(t, 1, device.commandCount())
}

func TestSetMute_UpdatesCachedState(t *testing.T) {
	device := newOKDevice(t)
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot(device.addr())}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	speaker, err := service.SetMute(context.Background(), "aa:bb:cc:00:00:01", "on")
	require.NoError(t, err)
	require.True(t, speaker.Muted)
}

func TestCommands_UnknownSpeaker(t *testing.T) {
	service := newTestService(&fakeDiscoverer{})

	_, err := service.SetVolume(context.Background(), "unknown", 10)
	require.ErrorIs(t, err, ErrNotFound)

	err = service.PlaybackControl(context.Background(), "unknown", "play")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPlaybackControl_RejectsUnknownAction(t *testing.T) {
	device := newOKDevice(t)
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot(device.addr())}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	err = service.PlaybackControl(context.Background(), "aa:bb:cc:00:00:01", "dance")
	var invalid *wam.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 0, device.commandCount())
}

func TestUpdateGroupName(t *testing.T) {
	disco := &fakeDiscoverer{snapshots: []discovery.Snapshot{kitchenSnapshot("192.168.1.10")}}
	service := newTestService(disco)

	_, _, err := service.Rescan(context.Background())
	require.NoError(t, err)

	service.UpdateGroupName("AA:BB:CC:00:00:01", "Downstairs")
	require.Equal(t, "Downstairs", service.Get("aa:bb:cc:00:00:01").GroupName)
}

func TestBootstrap_ImportsLegacyFile(t *testing.T) {
	path := t.TempDir() + "/speakers.json"
	require.NoError(t, SaveLegacyFile(path, []Speaker{{
		MAC:  "aa:bb:cc:00:00:09",
		IP:   "192.168.1.77",
		Name: "Attic",
	}}))

	cfg := config.Config{SpeakersFile: path, SSDPDiscoveryPasses: 1}
	service := NewService(cfg, nil, wam.NewClient(time.Second), nil, &fakeDiscoverer{}, nil, nil)
	require.NoError(t, service.Bootstrap())

	speaker := service.Get("aa:bb:cc:00:00:09")
	require.NotNil(t, speaker)
	require.Equal(t, "Attic", speaker.Name)
	require.False(t, speaker.Hydrated)
}
