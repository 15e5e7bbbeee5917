package discovery

import (
	"bufio"
	"context"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	ssdpAddr = "239.255.255.250:1900"

	// WamTarget is the SSDP search/notification type advertised by WAM
	// speakers.
	WamTarget = "urn:samsung.com:device:RemoteControlReceiver:1"
)

// Response is one SSDP answer from the search window.
type Response struct {
	Location string
	USN      string
	ST       string
	Headers  map[string]string
	FromIP   string
}

// Search performs SSDP M-SEARCH for the WAM device type with multi-pass
// behavior. bindIP scopes the search to one local interface; empty means
// the default route. Responses whose ST does not match the WAM target are
// dropped here.
func Search(ctx context.Context, bindIP string, passes int, passInterval, timeout time.Duration) ([]Response, error) {
	listenAddr := ":0"
	if bindIP != "" {
		listenAddr = net.JoinHostPort(bindIP, "0")
	}
	conn, err := net.ListenPacket("udp4", listenAddr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	addr, err := net.ResolveUDPAddr("udp4", ssdpAddr)
	if err != nil {
		return nil, err
	}

	responses := make(map[string]Response)

	if passes < 1 {
		passes = 1
	}
	for pass := 0; pass < passes; pass++ {
		if err := sendSearch(conn, addr); err != nil {
			return nil, err
		}
		if pass < passes-1 {
			select {
			case <-ctx.Done():
				return mapToSlice(responses), ctx.Err()
			case <-time.After(passInterval):
			}
		}
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return collectResponses(ctx, conn, deadline, responses)
}

// collectResponses reads replies until the deadline passes or the context
// ends. Cancellation cuts the read short by expiring the read deadline;
// responses gathered up to that point are still returned alongside the
// context error.
func collectResponses(ctx context.Context, conn net.PacketConn, deadline time.Time, responses map[string]Response) ([]Response, error) {
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	buf := make([]byte, 2048)
	for {
		n, raddr, err := conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break
			}
			return mapToSlice(responses), err
		}

		resp := ParseSearchResponse(string(buf[:n]))
		if !IsWamResponse(resp) {
			continue
		}
		resp.FromIP = hostOnly(raddr.String())

		// Deduplicate by USN; some firmware omits it, fall back to source IP.
		key := resp.USN
		if key == "" {
			key = resp.FromIP
		}
		if _, exists := responses[key]; !exists {
			responses[key] = resp
		}
	}

	return mapToSlice(responses), ctx.Err()
}

func sendSearch(conn net.PacketConn, addr *net.UDPAddr) error {
	msg := strings.Join([]string{
		"M-SEARCH * HTTP/1.1",
		"HOST: " + ssdpAddr,
		"MAN: \"ssdp:discover\"",
		"MX: 2",
		"ST: " + WamTarget,
		"",
		"",
	}, "\r\n")

	_, err := conn.WriteTo([]byte(msg), addr)
	return err
}

// ParseSearchResponse parses an SSDP reply's status line and headers.
func ParseSearchResponse(raw string) Response {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	headers := make(map[string]string)

	// Skip status line
	scanner.Scan()

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		headers[key] = value
	}

	return Response{
		Location: headers["LOCATION"],
		USN:      headers["USN"],
		ST:       headers["ST"],
		Headers:  headers,
	}
}

// IsWamResponse reports whether an SSDP response advertises the WAM
// remote-control device type.
func IsWamResponse(resp Response) bool {
	if resp.ST == WamTarget {
		return true
	}
	if strings.Contains(resp.USN, WamTarget) {
		return true
	}
	return strings.Contains(resp.Headers["NT"], WamTarget)
}

// ControlHost extracts the speaker's control address from the
// description-location URL, falling back to the reply's source IP.
func ControlHost(resp Response) string {
	if resp.Location != "" {
		parsed, err := url.Parse(resp.Location)
		if err == nil && parsed.Hostname() != "" {
			return parsed.Hostname()
		}
	}
	return resp.FromIP
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func mapToSlice(responses map[string]Response) []Response {
	result := make([]Response, 0, len(responses))
	for _, r := range responses {
		result = append(result, r)
	}
	return result
}
