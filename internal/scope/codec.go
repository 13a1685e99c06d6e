package scope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kamiazya/scopes/internal/aspect"
	"github.com/kamiazya/scopes/internal/ids"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
)

// Event payload bodies as stored in the log. The envelope carries ID,
// aggregate, version, clock, and timestamp; only kind-specific fields live
// here.
type (
	createdPayload struct {
		ParentID    string `json:"parent_id,omitempty"`
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
	}
	titleChangedPayload struct {
		Title string `json:"title"`
	}
	descriptionChangedPayload struct {
		Description string `json:"description"`
	}
	parentChangedPayload struct {
		ParentID string `json:"parent_id,omitempty"`
	}
	aspectsChangedPayload struct {
		Key    string   `json:"key"`
		Values []string `json:"values"`
	}
)

// ErrUnknownKind marks an envelope kind this build has no decoder for.
var ErrUnknownKind = errors.New("unknown event kind")

// EncodeEvent wraps a scope event into a log envelope.
func EncodeEvent(ev Event, device ids.DeviceID) (syncpkg.Event, error) {
	h := ev.Header()

	var body any
	switch e := ev.(type) {
	case Created:
		p := createdPayload{Title: e.Title, Description: e.Description}
		if e.ParentID != nil {
			p.ParentID = e.ParentID.String()
		}
		body = p
	case TitleChanged:
		body = titleChangedPayload{Title: e.Title}
	case DescriptionChanged:
		body = descriptionChangedPayload{Description: e.Description}
	case ParentChanged:
		p := parentChangedPayload{}
		if e.ParentID != nil {
			p.ParentID = e.ParentID.String()
		}
		body = p
	case AspectsChanged:
		p := aspectsChangedPayload{Key: e.Key.String()}
		for _, v := range e.Values {
			p.Values = append(p.Values, v.String())
		}
		body = p
	case Deleted:
		body = struct{}{}
	default:
		return syncpkg.Event{}, fmt.Errorf("unknown event type %T", ev)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return syncpkg.Event{}, fmt.Errorf("encode %s: %w", ev.eventKind(), err)
	}

	return syncpkg.Event{
		ID:          h.EventID,
		AggregateID: h.ScopeID.String(),
		Version:     h.Version,
		Clock:       h.Clock,
		Kind:        ev.eventKind(),
		Payload:     payload,
		Timestamp:   h.At,
		DeviceID:    device,
	}, nil
}

// DecodeEvent unwraps a log envelope into a scope event. Envelopes with an
// unknown kind fail; the caller decides whether that is a schema conflict.
func DecodeEvent(env syncpkg.Event) (Event, error) {
	scopeID, err := ids.ParseScopeID(env.AggregateID)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
	}
	h := EventHeader{
		EventID: env.ID,
		ScopeID: scopeID,
		Version: env.Version,
		Clock:   env.Clock,
		At:      env.Timestamp,
	}

	switch env.Kind {
	case KindCreated:
		var p createdPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		ev := Created{EventHeader: h, Title: p.Title, Description: p.Description}
		if p.ParentID != "" {
			parent, err := ids.ParseScopeID(p.ParentID)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
			}
			ev.ParentID = &parent
		}
		return ev, nil

	case KindTitleChanged:
		var p titleChangedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		return TitleChanged{EventHeader: h, Title: p.Title}, nil

	case KindDescriptionChanged:
		var p descriptionChangedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		return DescriptionChanged{EventHeader: h, Description: p.Description}, nil

	case KindParentChanged:
		var p parentChangedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		ev := ParentChanged{EventHeader: h}
		if p.ParentID != "" {
			parent, err := ids.ParseScopeID(p.ParentID)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
			}
			ev.ParentID = &parent
		}
		return ev, nil

	case KindAspectsChanged:
		var p aspectsChangedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		ev := AspectsChanged{EventHeader: h, Key: aspect.Key(p.Key)}
		for _, v := range p.Values {
			ev.Values = append(ev.Values, aspect.Value(v))
		}
		return ev, nil

	case KindDeleted:
		return Deleted{EventHeader: h}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}
