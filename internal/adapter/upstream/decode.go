package upstream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoPayload is returned when a body holds neither JSON nor an SSE data line
var ErrNoPayload = errors.New("no JSON payload in response body")

// DecodePayload parses a body that is either plain JSON or a server-sent
// events stream. For SSE the last data: line wins.
func DecodePayload(body []byte) (any, error) {
	var payload any
	jsonErr := json.Unmarshal(body, &payload)
	if jsonErr == nil {
		return payload, nil
	}

	last := lastEventData(body)
	if last == "" {
		return nil, errors.Join(ErrNoPayload, jsonErr)
	}
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// DecodeLoose parses JSON and falls back to the raw text
func DecodeLoose(body []byte) any {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return string(body)
	}
	return payload
}

func lastEventData(body []byte) string {
	var last string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), maxBodyBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			if data = strings.TrimSpace(data); data != "" {
				last = data
			}
		}
	}
	return last
}
