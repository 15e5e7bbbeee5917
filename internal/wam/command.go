package wam

import (
	"net/url"
	"strconv"
	"strings"
)

// Endpoint selects the control path on the speaker. UIC carries playback,
// volume and device-management commands; CPM carries content-provider
// commands (radio, streaming services).
type Endpoint string

const (
	EndpointUIC Endpoint = "UIC"
	EndpointCPM Endpoint = "CPM"
)

// ParamType is the wire type tag of a command parameter.
type ParamType string

const (
	ParamStr   ParamType = "str"
	ParamDec   ParamType = "dec"
	ParamCData ParamType = "cdata"
)

// Param is one typed command parameter. Order matters on the wire.
type Param struct {
	Type  ParamType
	Name  string
	Value string
}

// Command is a single UIC/CPM command: a name plus an ordered parameter
// list. Commands are transient; build one, encode it, send it.
type Command struct {
	Name   string
	Params []Param
}

// Cmd starts a new command with the given name.
func Cmd(name string) Command {
	return Command{Name: name}
}

// Str appends a string parameter.
func (c Command) Str(name, value string) Command {
	c.Params = append(c.Params, Param{Type: ParamStr, Name: name, Value: value})
	return c
}

// Dec appends a decimal parameter.
func (c Command) Dec(name string, value int) Command {
	c.Params = append(c.Params, Param{Type: ParamDec, Name: name, Value: strconv.Itoa(value)})
	return c
}

// CData appends a CDATA-wrapped string parameter. The firmware expects
// val="empty" on the attribute; the real value travels in the CDATA body.
func (c Command) CData(name, value string) Command {
	c.Params = append(c.Params, Param{Type: ParamCData, Name: name, Value: value})
	return c
}

// Fragment renders the raw XML fragment the device expects:
// <name>CMD</name> followed by one <p .../> element per parameter.
func (c Command) Fragment() string {
	var buf strings.Builder
	buf.WriteString("<name>")
	buf.WriteString(c.Name)
	buf.WriteString("</name>")

	for _, p := range c.Params {
		if p.Type == ParamCData {
			buf.WriteString("<p type=\"cdata\" name=\"")
			buf.WriteString(p.Name)
			buf.WriteString("\" val=\"empty\"><![CDATA[")
			buf.WriteString(p.Value)
			buf.WriteString("]]></p>")
			continue
		}
		buf.WriteString("<p type=\"")
		buf.WriteString(string(p.Type))
		buf.WriteString("\" name=\"")
		buf.WriteString(p.Name)
		buf.WriteString("\" val=\"")
		buf.WriteString(p.Value)
		buf.WriteString("\"/>")
	}

	return buf.String()
}

// Encode percent-encodes the fragment for the cmd query parameter. The
// firmware's decoder requires literal slash and equals characters, so those
// two escapes are reversed after standard encoding. Every other reserved
// character stays percent-encoded.
func (c Command) Encode() string {
	escaped := url.QueryEscape(c.Fragment())
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	escaped = strings.ReplaceAll(escaped, "%3D", "=")
	return escaped
}
