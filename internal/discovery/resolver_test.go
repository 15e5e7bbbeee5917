package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const arpTable = `IP address       HW type     Flags       HW address            Mask     Device
192.168.1.25     0x1         0x2         bc:14:85:45:a0:dc     *        eth0
192.168.1.26     0x1         0x0         00:00:00:00:00:00     *        eth0
192.168.1.27     0x1         0x2         bc:14:85:45:a0:de     *        eth0
`

func writeARPTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arp")
	require.NoError(t, os.WriteFile(path, []byte(arpTable), 0o644))
	return path
}

func TestARPMACResolver_ResolvesEntry(t *testing.T) {
	resolver := &ARPMACResolver{Path: writeARPTable(t)}

	mac, err := resolver.ResolveMAC(context.Background(), "192.168.1.25")
	require.NoError(t, err)
	require.Equal(t, "bc:14:85:45:a0:dc", mac)
}

func TestARPMACResolver_StripsPort(t *testing.T) {
	resolver := &ARPMACResolver{Path: writeARPTable(t)}

	mac, err := resolver.ResolveMAC(context.Background(), "192.168.1.27:55001")
	require.NoError(t, err)
	require.Equal(t, "bc:14:85:45:a0:de", mac)
}

func TestARPMACResolver_SkipsIncompleteEntries(t *testing.T) {
	resolver := &ARPMACResolver{Path: writeARPTable(t)}

	_, err := resolver.ResolveMAC(context.Background(), "192.168.1.26")
	require.Error(t, err)
}

func TestARPMACResolver_UnknownHost(t *testing.T) {
	resolver := &ARPMACResolver{Path: writeARPTable(t)}

	_, err := resolver.ResolveMAC(context.Background(), "10.0.0.1")
	require.Error(t, err)
}
