package wam

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func envelope(root, inner string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?><` + root + `><method>Test</method><version>1.0</version><response result="ok">` + inner + `</response></` + root + `>`)
}

func TestParseResponse_OK(t *testing.T) {
	resp, err := parseResponse("GetVolume", "192.168.1.10", EndpointUIC, envelope("UIC", "<volume>15</volume>"))
	require.NoError(t, err)
	require.Equal(t, "Test", resp.Method)

	vol, err := resp.RequireInt("volume")
	require.NoError(t, err)
	require.Equal(t, 15, vol)
}

func TestParseResponse_CDataUnwrap(t *testing.T) {
	resp, err := parseResponse("GetSpkName", "192.168.1.10", EndpointUIC,
		envelope("UIC", "<spkname><![CDATA[Living Room & Kitchen <main>]]></spkname>"))
	require.NoError(t, err)

	name, err := resp.Require("spkname")
	require.NoError(t, err)
	require.Equal(t, "Living Room & Kitchen <main>", name)
}

func TestParseResponse_CPMRoot(t *testing.T) {
	resp, err := parseResponse("GetRadioInfo", "192.168.1.10", EndpointCPM,
		envelope("CPM", "<cpname>TuneIn</cpname>"))
	require.NoError(t, err)
	require.Equal(t, "TuneIn", resp.Field("cpname"))
}

func TestParseResponse_EmptyBody(t *testing.T) {
	_, err := parseResponse("GetVolume", "192.168.1.10", EndpointUIC, []byte("  "))

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "GetVolume", protoErr.Command)
	require.Contains(t, protoErr.Reason, "empty")
}

func TestParseResponse_MalformedXML(t *testing.T) {
	_, err := parseResponse("GetVolume", "192.168.1.10", EndpointUIC, []byte("not xml at all"))

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestParseResponse_WrongRoot(t *testing.T) {
	_, err := parseResponse("GetVolume", "192.168.1.10", EndpointUIC, envelope("CPM", "<volume>1</volume>"))

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Contains(t, protoErr.Reason, "unexpected root")
	require.NotEmpty(t, protoErr.Raw)
}

func TestParseResponse_MissingResponseNode(t *testing.T) {
	payload := []byte(`<UIC><method>Test</method></UIC>`)
	_, err := parseResponse("GetVolume", "192.168.1.10", EndpointUIC, payload)

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Contains(t, protoErr.Reason, "missing <response>")
}

func TestParseResponse_DeviceReportedFailure(t *testing.T) {
	payload := []byte(`<UIC><method>ErrorEvent</method><response result="ng"><errCode>ERROR_SOUND_UNKNOWN</errCode></response></UIC>`)
	_, err := parseResponse("SetVolume", "192.168.1.10", EndpointUIC, payload)

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Contains(t, protoErr.Reason, "result=ng")
	require.Contains(t, protoErr.Reason, "ERROR_SOUND_UNKNOWN")
}

func TestResponse_RequireMissingField(t *testing.T) {
	resp, err := parseResponse("GetVolume", "192.168.1.10", EndpointUIC, envelope("UIC", ""))
	require.NoError(t, err)

	_, err = resp.Require("volume")
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Contains(t, protoErr.Reason, "<volume>")
}

func TestResponse_RequireIntNonNumeric(t *testing.T) {
	resp, err := parseResponse("GetVolume", "192.168.1.10", EndpointUIC, envelope("UIC", "<volume>loud</volume>"))
	require.NoError(t, err)

	_, err = resp.RequireInt("volume")
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestParseEQPresets(t *testing.T) {
	payload := envelope("UIC", `<presetlistcount>3</presetlistcount><presetlist>`+
		`<preset><presetindex>0</presetindex><presetname>NONE</presetname></preset>`+
		`<preset><presetindex>1</presetindex><presetname>POP</presetname></preset>`+
		`<preset><presetindex>4</presetindex><presetname><![CDATA[My Preset]]></presetname></preset>`+
		`</presetlist>`)

	presets := parseEQPresets(payload)
	require.Len(t, presets, 3)
	require.Equal(t, EQPreset{Index: 0, Name: "NONE"}, presets[0])
	require.Equal(t, EQPreset{Index: 1, Name: "POP"}, presets[1])
	require.Equal(t, EQPreset{Index: 4, Name: "My Preset"}, presets[2])
}

func TestParsePresetTitles(t *testing.T) {
	payload := envelope("CPM", `<presetlist>`+
		`<preset><title>Jazz FM</title></preset>`+
		`<preset><title><![CDATA[News & Talk]]></title></preset>`+
		`</presetlist>`)

	titles := parsePresetTitles(payload)
	require.Equal(t, []string{"Jazz FM", "News & Talk"}, titles)
}
