package telephony

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestConnectStreamTwiML(t *testing.T) {
	body, err := ConnectStreamTwiML("wss://voice.example.com/media", "", nil)
	if err != nil {
		t.Fatalf("ConnectStreamTwiML: %v", err)
	}

	out := string(body)
	if !strings.HasPrefix(out, xml.Header) {
		t.Errorf("missing XML header: %q", out)
	}
	if !strings.Contains(out, `<Stream url="wss://voice.example.com/media">`) &&
		!strings.Contains(out, `<Stream url="wss://voice.example.com/media"></Stream>`) {
		t.Errorf("missing stream element: %q", out)
	}
	if strings.Contains(out, "<Say>") {
		t.Errorf("unexpected Say element: %q", out)
	}

	var resp twimlResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal rendered twiml: %v", err)
	}
	if resp.Connect == nil || resp.Connect.Stream.URL != "wss://voice.example.com/media" {
		t.Errorf("parsed response = %+v", resp)
	}
}

func TestConnectStreamTwiML_GreetingAndParameters(t *testing.T) {
	body, err := ConnectStreamTwiML("wss://voice.example.com/media", "Connecting you now.",
		map[string]string{"caller": "+15550123"})
	if err != nil {
		t.Fatalf("ConnectStreamTwiML: %v", err)
	}

	var resp twimlResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal rendered twiml: %v", err)
	}
	if resp.Say == nil || resp.Say.Text != "Connecting you now." {
		t.Errorf("say = %+v", resp.Say)
	}
	params := resp.Connect.Stream.Parameters
	if len(params) != 1 || params[0].Name != "caller" || params[0].Value != "+15550123" {
		t.Errorf("parameters = %+v", params)
	}
}
