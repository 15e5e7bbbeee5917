package discovery

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/strefethen/wam-hub-go/internal/wam"
)

// MACResolver resolves a speaker's link-layer identity. The MAC is the
// protocol-level identity used for grouping, independent of the IP.
type MACResolver interface {
	ResolveMAC(ctx context.Context, addr string) (string, error)
}

// DeviceMACResolver asks the speaker itself via GetMainInfo. This is the
// default: it works on any platform and needs no neighbor-table access.
type DeviceMACResolver struct {
	Client *wam.Client
}

func (r *DeviceMACResolver) ResolveMAC(ctx context.Context, addr string) (string, error) {
	info, err := r.Client.MainInfo(ctx, addr)
	if err != nil {
		return "", err
	}
	if info.SpeakerMAC == "" {
		return "", fmt.Errorf("device %s reported no MAC", addr)
	}
	return info.SpeakerMAC, nil
}

// ARPMACResolver reads the kernel neighbor table. Linux-only fallback for
// firmware that omits spkmacaddr from GetMainInfo.
type ARPMACResolver struct {
	// Path defaults to /proc/net/arp.
	Path string
}

func (r *ARPMACResolver) ResolveMAC(ctx context.Context, addr string) (string, error) {
	path := r.Path
	if path == "" {
		path = "/proc/net/arp"
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	host := addr
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}

	scanner := bufio.NewScanner(file)
	// Header line: IP address, HW type, Flags, HW address, Mask, Device
	if scanner.Scan() {
		// no-op
	}
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		if fields[0] == host && fields[3] != "00:00:00:00:00:00" {
			return fields[3], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no neighbor-table entry for %s", host)
}
