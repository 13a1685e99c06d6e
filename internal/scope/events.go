package scope

import (
	"fmt"
	"time"

	"github.com/kamiazya/scopes/internal/aspect"
	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/vclock"
)

// EventHeader carries the fields common to every scope event. Version is the
// aggregate version the event produces; Clock is the device vector clock at
// emission.
type EventHeader struct {
	EventID ids.EventID
	ScopeID ids.ScopeID
	Version int64
	Clock   vclock.Clock
	At      time.Time
}

// Event is the sealed union of scope domain events. Only the types below
// implement it; Apply dispatches exhaustively.
type Event interface {
	Header() EventHeader
	eventKind() string
}

// Created records the birth of a scope.
type Created struct {
	EventHeader
	ParentID    *ids.ScopeID
	Title       string
	Description string
}

func (e Created) Header() EventHeader { return e.EventHeader }
func (Created) eventKind() string     { return KindCreated }

// TitleChanged records a title update.
type TitleChanged struct {
	EventHeader
	Title string
}

func (e TitleChanged) Header() EventHeader { return e.EventHeader }
func (TitleChanged) eventKind() string     { return KindTitleChanged }

// DescriptionChanged records a description update. An empty Description
// clears it.
type DescriptionChanged struct {
	EventHeader
	Description string
}

func (e DescriptionChanged) Header() EventHeader { return e.EventHeader }
func (DescriptionChanged) eventKind() string     { return KindDescriptionChanged }

// ParentChanged records a move to a new parent (nil for promotion to root).
type ParentChanged struct {
	EventHeader
	ParentID *ids.ScopeID
}

func (e ParentChanged) Header() EventHeader { return e.EventHeader }
func (ParentChanged) eventKind() string     { return KindParentChanged }

// AspectsChanged records the full replacement of one aspect's values.
// Values empty means the aspect was removed.
type AspectsChanged struct {
	EventHeader
	Key    aspect.Key
	Values []aspect.Value
}

func (e AspectsChanged) Header() EventHeader { return e.EventHeader }
func (AspectsChanged) eventKind() string     { return KindAspectsChanged }

// Deleted records the removal of a scope. Scopes with children reject
// deletion before this event is ever emitted.
type Deleted struct {
	EventHeader
}

func (e Deleted) Header() EventHeader { return e.EventHeader }
func (Deleted) eventKind() string     { return KindDeleted }

// Event kind names as persisted in the event log.
const (
	KindCreated            = "ScopeCreated"
	KindTitleChanged       = "ScopeTitleChanged"
	KindDescriptionChanged = "ScopeDescriptionChanged"
	KindParentChanged      = "ScopeParentChanged"
	KindAspectsChanged     = "ScopeAspectsChanged"
	KindDeleted            = "ScopeDeleted"
)

// Apply replays events onto s (nil for a fresh aggregate) and returns the
// resulting state, nil when the final event is a deletion. Events must be
// contiguous in version; a gap fails with ErrCodeVersionGap.
func Apply(s *Scope, events []Event) (*Scope, error) {
	current := s
	if current != nil {
		current = current.clone()
	}

	for _, ev := range events {
		h := ev.Header()

		expected := int64(1)
		if current != nil {
			expected = current.Version + 1
		}
		if h.Version != expected {
			return nil, &Error{
				Code:    ErrCodeVersionGap,
				Message: fmt.Sprintf("event version %d, expected %d", h.Version, expected),
				ScopeID: h.ScopeID.String(),
			}
		}

		switch e := ev.(type) {
		case Created:
			if current != nil {
				return nil, &Error{
					Code:    ErrCodeVersionGap,
					Message: "created event on an existing aggregate",
					ScopeID: h.ScopeID.String(),
				}
			}
			current = &Scope{
				ID:          e.ScopeID,
				ParentID:    e.ParentID,
				Title:       e.Title,
				Description: e.Description,
				Aspects:     make(map[aspect.Key][]aspect.Value),
				Version:     e.Version,
				CreatedAt:   e.At,
				UpdatedAt:   e.At,
			}

		case TitleChanged:
			current.Title = e.Title
			current.Version = e.Version
			current.UpdatedAt = e.At

		case DescriptionChanged:
			current.Description = e.Description
			current.Version = e.Version
			current.UpdatedAt = e.At

		case ParentChanged:
			current.ParentID = e.ParentID
			current.Version = e.Version
			current.UpdatedAt = e.At

		case AspectsChanged:
			if len(e.Values) == 0 {
				delete(current.Aspects, e.Key)
			} else {
				current.Aspects[e.Key] = append([]aspect.Value(nil), e.Values...)
			}
			current.Version = e.Version
			current.UpdatedAt = e.At

		case Deleted:
			return nil, nil

		default:
			return nil, fmt.Errorf("unknown event type %T", ev)
		}
	}
	return current, nil
}

// ToEvents derives the creation event stream for a freshly constructed
// scope, so Apply(nil, ToEvents(s)) rebuilds the same state.
func (s *Scope) ToEvents(eventID ids.EventID, clock vclock.Clock) []Event {
	events := []Event{Created{
		EventHeader: EventHeader{
			EventID: eventID,
			ScopeID: s.ID,
			Version: 1,
			Clock:   clock,
			At:      s.CreatedAt,
		},
		ParentID:    s.ParentID,
		Title:       s.Title,
		Description: s.Description,
	}}
	return events
}
