package events

import (
	"encoding/json"
	"fmt"
)

// Stream message field names. An entry carries the event kind as a plain
// field plus the typed payload as a JSON blob, mirroring how the chain
// gateway publishes decoded logs.
const (
	FieldKind    = "kind"
	FieldPayload = "payload"
)

// Encode serializes an event into stream entry fields.
func Encode(ev Event) (map[string]interface{}, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Kind(), err)
	}
	return map[string]interface{}{
		FieldKind:    string(ev.Kind()),
		FieldPayload: string(payload),
	}, nil
}

// Decode parses stream entry fields back into a typed, validated event.
// Unknown kinds and undecodable payloads are malformed (fail closed).
func Decode(values map[string]interface{}) (Event, error) {
	kind, _ := values[FieldKind].(string)
	payload, _ := values[FieldPayload].(string)
	if kind == "" || payload == "" {
		return nil, fmt.Errorf("%w: stream entry missing kind or payload", ErrMalformed)
	}

	var ev Event
	switch Kind(kind) {
	case KindTransfer:
		ev = &Transfer{}
	case KindTransferShares:
		ev = &TransferShares{}
	case KindApproval:
		ev = &Approval{}
	case KindMintRequested:
		ev = &MintRequested{}
	case KindMintCompleted:
		ev = &MintCompleted{}
	case KindRedemptionRequested:
		ev = &RedemptionRequested{}
	case KindRedemptionCompleted:
		ev = &RedemptionCompleted{}
	case KindRangeSet:
		ev = &RangeSet{}
	case KindRangeOverridden:
		ev = &RangeOverridden{}
	default:
		return nil, fmt.Errorf("%w: unknown event kind %q", ErrMalformed, kind)
	}

	if err := json.Unmarshal([]byte(payload), ev); err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", ErrMalformed, kind, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}
