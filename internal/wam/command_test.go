package wam

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandFragment(t *testing.T) {
	cmd := Cmd("SetVolume").Dec("volume", 15)
	require.Equal(t, `<name>SetVolume</name><p type="dec" name="volume" val="15"/>`, cmd.Fragment())
}

func TestCommandFragment_NoParams(t *testing.T) {
	require.Equal(t, `<name>GetVolume</name>`, Cmd("GetVolume").Fragment())
}

func TestCommandFragment_CDataPlaceholder(t *testing.T) {
	cmd := Cmd("SetSpkName").CData("spkname", "Living Room")
	// The real value lives in the CDATA body; the attribute stays "empty".
	require.Equal(t, `<name>SetSpkName</name><p type="cdata" name="spkname" val="empty"><![CDATA[Living Room]]></p>`, cmd.Fragment())
}

func TestCommandEncode_SlashAndEqualsStayLiteral(t *testing.T) {
	encoded := Cmd("SetVolume").Dec("volume", 15).Encode()

	require.NotContains(t, encoded, "%2F")
	require.NotContains(t, encoded, "%3D")
	require.Contains(t, encoded, "/")
	require.Contains(t, encoded, "val=%2215%22")
	// Angle brackets and quotes remain percent-encoded.
	require.Contains(t, encoded, "%3Cname%3E")
	require.Contains(t, encoded, "%22")
	require.NotContains(t, encoded, "<")
	require.NotContains(t, encoded, "+")
}

func TestCommandEncode_SpacesAsPercent20(t *testing.T) {
	encoded := Cmd("SetSpkName").CData("spkname", "Living Room").Encode()
	require.Contains(t, encoded, "%20")
	require.NotContains(t, encoded, "+")
}

func TestCommandEncode_RoundTrip(t *testing.T) {
	// Encode must be reversible by a standard percent-decoder: the device
	// decodes the cmd parameter, so un-escaping / and = must not lose data.
	cmd := Cmd("SetUrlPlayback").
		CData("url", "http://example.com/stream?a=1&b=<x>/y").
		Dec("resume", 1)
	fragment := cmd.Fragment()

	decoded, err := url.QueryUnescape(cmd.Encode())
	require.NoError(t, err)
	require.Equal(t, fragment, decoded)
	require.Contains(t, decoded, "<![CDATA[http://example.com/stream?a=1&b=<x>/y]]>")
}

func TestCommandEncode_ReservedCharactersInValues(t *testing.T) {
	encoded := Cmd("SetSpkName").CData("spkname", "a&b c").Encode()
	require.Contains(t, encoded, "%26")
	require.False(t, strings.Contains(encoded, "&"))
}
