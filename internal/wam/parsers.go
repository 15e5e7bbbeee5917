package wam

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
)

// Response is a parsed UIC/CPM reply envelope. Field values are extracted
// lazily from the retained payload; CDATA text nodes unwrap transparently.
type Response struct {
	Command string
	Addr    string
	Method  string
	payload []byte
}

// parseResponse validates the reply envelope: the root element must match
// the endpoint and must contain a <response> child with result="ok".
func parseResponse(command, addr string, endpoint Endpoint, payload []byte) (*Response, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &ProtocolError{Command: command, Addr: addr, Reason: "empty response body"}
	}

	decoder := xml.NewDecoder(bytes.NewReader(payload))

	rootSeen := false
	responseSeen := false
	result := ""
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !rootSeen {
			rootSeen = true
			if se.Name.Local != string(endpoint) {
				return nil, &ProtocolError{
					Command: command,
					Addr:    addr,
					Reason:  "unexpected root element <" + se.Name.Local + ">",
					Raw:     string(payload),
				}
			}
			continue
		}
		if se.Name.Local == "response" {
			responseSeen = true
			for _, attr := range se.Attr {
				if attr.Name.Local == "result" {
					result = attr.Value
				}
			}
			break
		}
	}

	if !rootSeen {
		return nil, &ProtocolError{Command: command, Addr: addr, Reason: "malformed XML", Raw: string(payload)}
	}
	if !responseSeen {
		return nil, &ProtocolError{Command: command, Addr: addr, Reason: "missing <response> element", Raw: string(payload)}
	}

	resp := &Response{
		Command: command,
		Addr:    addr,
		Method:  textValue(payload, "method"),
		payload: payload,
	}

	if result != "" && result != "ok" {
		reason := "device reported result=" + result
		if code := resp.Field("errCode"); code != "" {
			reason += " errCode=" + code
		}
		return nil, &ProtocolError{Command: command, Addr: addr, Reason: reason, Raw: string(payload)}
	}

	return resp, nil
}

// Field returns the text of the named response element, empty when absent.
func (r *Response) Field(element string) string {
	return textValue(r.payload, element)
}

// Require returns the named field, failing with a ProtocolError when the
// element is missing or empty. The codec never substitutes defaults.
func (r *Response) Require(element string) (string, error) {
	value := r.Field(element)
	if value == "" {
		return "", &ProtocolError{
			Command: r.Command,
			Addr:    r.Addr,
			Reason:  "missing expected <" + element + "> node",
			Raw:     string(r.payload),
		}
	}
	return value, nil
}

// RequireInt parses the named field as an integer.
func (r *Response) RequireInt(element string) (int, error) {
	value, err := r.Require(element)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(value)
	if convErr != nil {
		return 0, &ProtocolError{
			Command: r.Command,
			Addr:    r.Addr,
			Reason:  "non-numeric <" + element + "> value " + value,
			Raw:     string(r.payload),
		}
	}
	return n, nil
}

// Raw returns the retained reply payload for diagnostics.
func (r *Response) Raw() []byte {
	return r.payload
}

// parseEQPresets walks the Get7BandEQList reply collecting <preset>
// entries (presetindex + presetname children).
func parseEQPresets(payload []byte) []EQPreset {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	var presets []EQPreset
	var current *EQPreset

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "preset":
				presets = append(presets, EQPreset{})
				current = &presets[len(presets)-1]
			case "presetindex":
				if current != nil {
					var value string
					if err := decoder.DecodeElement(&value, &se); err == nil {
						current.Index, _ = strconv.Atoi(strings.TrimSpace(value))
					}
				}
			case "presetname":
				if current != nil {
					var value string
					if err := decoder.DecodeElement(&value, &se); err == nil {
						current.Name = strings.TrimSpace(value)
					}
				}
			}
		}
	}

	return presets
}

// parsePresetTitles collects <title> entries from a CPM GetPresetList reply.
func parsePresetTitles(payload []byte) []string {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	var titles []string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "title" {
				var value string
				if err := decoder.DecodeElement(&value, &se); err == nil {
					titles = append(titles, strings.TrimSpace(value))
				}
			}
		}
	}

	return titles
}

func textValue(payload []byte, element string) string {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == element {
				var value string
				if err := decoder.DecodeElement(&value, &se); err == nil {
					return strings.TrimSpace(value)
				}
			}
		}
	}
	return ""
}
