package activitymap

import (
	"sort"
	"strings"
	"time"

	hospital "github.com/goliatone/go-hospital"
)

const (
	// MetadataKeyActorRole stores the role of the acting account
	MetadataKeyActorRole  = "actor_role"
	MetadataKeyFromStatus = "from_status"
	MetadataKeyToStatus   = "to_status"
)

const (
	defaultChannel    = "hospital"
	defaultObjectType = "account"
	defaultActorID    = "system"
)

// Record is the flat audit shape written by log and queue sinks
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Fields flattens the record into key value pairs for structured loggers.
// Metadata keys are emitted in sorted order.
func (r Record) Fields() []any {
	fields := []any{
		"verb", r.Verb,
		"actor_id", r.ActorID,
		"object_type", r.ObjectType,
		"object_id", r.ObjectID,
		"channel", r.Channel,
	}

	keys := make([]string, 0, len(r.Metadata))
	for key := range r.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fields = append(fields, key, r.Metadata[key])
	}
	return fields
}

type Option func(*options)

type options struct {
	channel       string
	objectType    string
	actorFallback string
	objectID      func(hospital.ActivityEvent) string
}

// Normalize maps an account activity event to a Record. The actor falls
// back to the account itself, then to the configured fallback.
func Normalize(event hospital.ActivityEvent, opts ...Option) Record {
	o := options{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	objectID := strings.TrimSpace(event.AccountID)
	if o.objectID != nil {
		objectID = strings.TrimSpace(o.objectID(event))
	}

	return Record{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.Actor.ID),
			strings.TrimSpace(event.AccountID),
			o.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   objectID,
		Channel:    o.channel,
		Metadata:   metadataOf(event),
		OccurredAt: occurredAt,
	}
}

func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = strings.TrimSpace(channel)
	}
}

func WithObjectType(objectType string) Option {
	return func(o *options) {
		o.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver replaces the AccountID based object id
func WithObjectIDResolver(resolver func(hospital.ActivityEvent) string) Option {
	return func(o *options) {
		o.objectID = resolver
	}
}

func WithActorFallback(actorID string) Option {
	return func(o *options) {
		o.actorFallback = strings.TrimSpace(actorID)
	}
}

// metadataOf copies the event metadata, the source map is never mutated
func metadataOf(event hospital.ActivityEvent) map[string]any {
	out := make(map[string]any, len(event.Metadata)+3)
	for key, value := range event.Metadata {
		out[key] = value
	}

	if role := strings.TrimSpace(string(event.Actor.Role)); role != "" {
		if _, exists := out[MetadataKeyActorRole]; !exists {
			out[MetadataKeyActorRole] = role
		}
	}
	if event.FromStatus != "" {
		out[MetadataKeyFromStatus] = string(event.FromStatus)
	}
	if event.ToStatus != "" {
		out[MetadataKeyToStatus] = string(event.ToStatus)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
