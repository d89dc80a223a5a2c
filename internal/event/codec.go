package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned when decoding an event of an unregistered type.
var ErrUnknownType = errors.New("unknown event type")

type envelope struct {
	Type  Type            `json:"type"`
	Event json.RawMessage `json:"event"`
}

// Marshal encodes an event with its type tag, the wire format used by the
// outbox, the broker topic and the websocket feed.
func Marshal(ev Event) ([]byte, error) {
	buf := acquireBuffer()
	defer releaseBuffer(buf)

	enc := json.NewEncoder(buf)
	if err := enc.Encode(ev); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.GetType(), err)
	}
	body := buf.Bytes()
	// Encoder appends a newline
	body = body[:len(body)-1]

	return json.Marshal(envelope{Type: ev.GetType(), Event: body})
}

// Unmarshal decodes an event produced by Marshal.
func Unmarshal(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	ev, err := newEvent(env.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Event, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return ev, nil
}

func newEvent(t Type) (Event, error) {
	switch t {
	case TypeGenesis:
		return &GenesisEvent{}, nil
	case TypeMarketplaceInitialized:
		return &MarketplaceInitializedEvent{}, nil
	case TypeServiceListed:
		return &ServiceListedEvent{}, nil
	case TypeServicePurchased:
		return &ServicePurchasedEvent{}, nil
	case TypeAssetTransferred:
		return &AssetTransferredEvent{}, nil
	case TypeAssetFrozen:
		return &AssetFrozenEvent{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}
