package presence

import json "github.com/goccy/go-json"

const (
	OpEvent     = 0
	OpHello     = 1
	OpSubscribe = 2
	OpHeartbeat = 3
)

const (
	EventInitState      = "INIT_STATE"
	EventPresenceUpdate = "PRESENCE_UPDATE"
)

type Frame struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	T  string          `json:"t,omitempty"`
}

type helloPayload struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type subscribePayload struct {
	SubscribeToIDs []string `json:"subscribe_to_ids"`
}

func subscribeFrame(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	d, err := json.Marshal(subscribePayload{SubscribeToIDs: ids})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Op: OpSubscribe, D: d})
}

func heartbeatFrame() []byte {
	return []byte(`{"op":3}`)
}
