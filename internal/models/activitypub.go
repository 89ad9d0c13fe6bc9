package models

import (
	"encoding/json"
	"fmt"
)

// ModerationStatus is the inbox state of a stored activity.
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusRejected ModerationStatus = "rejected"
)

// Keypair holds a locally hosted actor's PEM-encoded RSA keys. The
// private key never leaves the actor's own namespace.
type Keypair struct {
	PrivateKeyPEM string `json:"privateKeyPem"`
	PublicKeyPEM  string `json:"publicKeyPem"`
}

// ActorInfo is the durable record of a locally hosted actor identity.
type ActorInfo struct {
	ActorURL    string  `json:"actorUrl"`
	Keypair     Keypair `json:"keypair"`
	PublicKeyID string  `json:"publicKeyId"`
}

// Activity is a unit of federation input. Object is kept raw because
// its shape depends on Type; use ParseObject to inspect it.
type Activity struct {
	Context   any              `json:"@context,omitempty"`
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Actor     string           `json:"actor"`
	Object    json.RawMessage  `json:"object,omitempty"`
	To        []string         `json:"to,omitempty"`
	CC        []string         `json:"cc,omitempty"`
	Published string           `json:"published,omitempty"`
	Status    ModerationStatus `json:"moderationStatus,omitempty"`
}

// Note is an ActivityPub Note object.
type Note struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	AttributedTo string   `json:"attributedTo"`
	Content      string   `json:"content"`
	Published    string   `json:"published,omitempty"`
	To           []string `json:"to,omitempty"`
	CC           []string `json:"cc,omitempty"`
	InReplyTo    string   `json:"inReplyTo,omitempty"`
}

// ObjectKind discriminates the recognized shapes of Activity.Object.
type ObjectKind int

const (
	// ObjectNone means the activity carried no object.
	ObjectNone ObjectKind = iota
	// ObjectReference is a bare id string pointing at a remote object.
	ObjectReference
	// ObjectNote is an embedded Note.
	ObjectNote
	// ObjectUnknown is an embedded object of an unrecognized type,
	// carried through untouched.
	ObjectUnknown
)

// Object is the decoded form of an activity's nested payload.
type Object struct {
	Kind ObjectKind
	Ref  string
	Note *Note
	Raw  json.RawMessage
}

// ParseObject decodes the nested payload of an activity into a tagged
// variant. Unrecognized shapes come back as ObjectUnknown rather than
// an error so unknown activity types still flow through moderation.
func ParseObject(raw json.RawMessage) (Object, error) {
	if len(raw) == 0 {
		return Object{Kind: ObjectNone}, nil
	}

	var ref string
	if err := json.Unmarshal(raw, &ref); err == nil {
		return Object{Kind: ObjectReference, Ref: ref, Raw: raw}, nil
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Object{}, fmt.Errorf("failed to decode activity object: %w", err)
	}

	switch probe.Type {
	case "Note":
		var note Note
		if err := json.Unmarshal(raw, &note); err != nil {
			return Object{}, fmt.Errorf("failed to decode note: %w", err)
		}
		return Object{Kind: ObjectNote, Note: &note, Raw: raw}, nil
	default:
		return Object{Kind: ObjectUnknown, Raw: raw}, nil
	}
}

// ReplyNote returns the embedded note when the activity is a Create of
// a Note reply attributed to owner, which is the shape that gets copied
// into the owner's replies collection on approval.
func (a *Activity) ReplyNote(owner string) (*Note, bool) {
	if a.Type != "Create" {
		return nil, false
	}
	obj, err := ParseObject(a.Object)
	if err != nil || obj.Kind != ObjectNote {
		return nil, false
	}
	if obj.Note.InReplyTo == "" || obj.Note.AttributedTo != owner {
		return nil, false
	}
	return obj.Note, true
}

// OrderedCollection is the envelope for inbox listings.
type OrderedCollection struct {
	Context      any        `json:"@context"`
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	TotalItems   int        `json:"totalItems"`
	OrderedItems []Activity `json:"orderedItems"`
}

// Actor is the public ActivityPub actor document served at an actor's
// profile URL; PublicKey is what a publicKeyId dereferences to.
type Actor struct {
	Context           any            `json:"@context"`
	ID                string         `json:"id"`
	Type              string         `json:"type"`
	PreferredUsername string         `json:"preferredUsername"`
	Inbox             string         `json:"inbox"`
	URL               string         `json:"url,omitempty"`
	PublicKey         ActorPublicKey `json:"publicKey"`
}

// ActorPublicKey is the public key block in an actor document.
type ActorPublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// WebfingerResponse is the JRD document returned by webfinger lookups.
type WebfingerResponse struct {
	Subject string          `json:"subject"`
	Aliases []string        `json:"aliases,omitempty"`
	Links   []WebfingerLink `json:"links"`
}

// WebfingerLink is one link entry in a JRD document.
type WebfingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}
