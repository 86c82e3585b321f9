package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is the envelope of a provider webhook delivery.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// IsSubscriptionEvent reports whether the reconciler cares about this type.
func (e *Event) IsSubscriptionEvent() bool {
	switch e.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		return true
	default:
		return false
	}
}

type stripeSubscription struct {
	ID                 string          `json:"id"`
	Customer           json.RawMessage `json:"customer"`
	Status             string          `json:"status"`
	CancelAtPeriodEnd  bool            `json:"cancel_at_period_end"`
	CurrentPeriodStart int64           `json:"current_period_start"`
	CurrentPeriodEnd   int64           `json:"current_period_end"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// ParseEvent decodes the envelope of a verified payload.
func ParseEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if evt.ID == "" || evt.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}
	return &evt, nil
}

// Subscription normalizes the event object. Price and period bounds come from the
// first item, falling back to the subscription level fields of older API versions.
func (e *Event) Subscription() (SubscriptionEvent, error) {
	var raw stripeSubscription
	if err := json.Unmarshal(e.Data.Object, &raw); err != nil {
		return SubscriptionEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.ID == "" {
		return SubscriptionEvent{}, fmt.Errorf("%w: subscription without id", ErrMalformedEvent)
	}

	out := SubscriptionEvent{
		SubscriptionID:    raw.ID,
		CustomerID:        customerID(raw.Customer),
		Status:            strings.TrimSpace(raw.Status),
		CancelAtPeriodEnd: raw.CancelAtPeriodEnd,
	}

	start, end := raw.CurrentPeriodStart, raw.CurrentPeriodEnd
	if len(raw.Items.Data) > 0 {
		item := raw.Items.Data[0]
		out.PriceID = item.Price.ID
		if item.CurrentPeriodStart != 0 {
			start = item.CurrentPeriodStart
		}
		if item.CurrentPeriodEnd != 0 {
			end = item.CurrentPeriodEnd
		}
	}
	out.CurrentPeriodStart = unixUTC(start)
	out.CurrentPeriodEnd = unixUTC(end)
	return out, nil
}

// customerID accepts both the bare id and an expanded customer object.
func customerID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

func unixUTC(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
