package telephony

import (
	"encoding/xml"
	"fmt"
)

// TwiML document structure for answering a call and bridging its audio to a
// Media Streams WebSocket.

type twimlResponse struct {
	XMLName xml.Name      `xml:"Response"`
	Say     *twimlSay     `xml:"Say,omitempty"`
	Connect *twimlConnect `xml:"Connect,omitempty"`
}

type twimlSay struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter,omitempty"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConnectStreamTwiML renders the TwiML that instructs Twilio to open a
// bidirectional Media Stream to streamURL. An optional greeting is spoken
// before the stream is bridged. Custom parameters are forwarded to the
// stream's start message.
func ConnectStreamTwiML(streamURL, greeting string, params map[string]string) ([]byte, error) {
	resp := twimlResponse{
		Connect: &twimlConnect{
			Stream: twimlStream{URL: streamURL},
		},
	}
	if greeting != "" {
		resp.Say = &twimlSay{Text: greeting}
	}
	for name, value := range params {
		resp.Connect.Stream.Parameters = append(resp.Connect.Stream.Parameters,
			twimlParameter{Name: name, Value: value})
	}

	body, err := xml.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("telephony: render twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
