package websocket

import (
	"encoding/json"
	"fmt"
)

// ObjectKind identifies what changed and therefore how an update is routed
type ObjectKind string

// Project-scoped kinds are delivered to the subscribers of a project,
// user-scoped kinds to every authenticated connection of a user.
const (
	ObjectProject ObjectKind = "project"
	ObjectTasks   ObjectKind = "tasks"
	ObjectTask    ObjectKind = "task"
	ObjectDetails ObjectKind = "details"

	ObjectProfile  ObjectKind = "profile"
	ObjectContacts ObjectKind = "contacts"
	ObjectProjects ObjectKind = "projects"
)

// sessionSuffixLen is how much of the originating session id is echoed back as macId
const sessionSuffixLen = 8

// IsProjectScoped reports whether the kind routes through the project index
func (k ObjectKind) IsProjectScoped() bool {
	switch k {
	case ObjectProject, ObjectTasks, ObjectTask, ObjectDetails:
		return true
	}
	return false
}

// IsUserScoped reports whether the kind routes through the user index
func (k ObjectKind) IsUserScoped() bool {
	switch k {
	case ObjectProfile, ObjectContacts, ObjectProjects:
		return true
	}
	return false
}

// Update is a pending change notification.
type Update struct {
	Object  ObjectKind `json:"object"`
	Project string     `json:"project,omitempty"`
	User    string     `json:"user,omitempty"`

	// By is the user whose request caused the change
	By string `json:"by,omitempty"`

	// MacID is the tail of the originating session id, letting a client
	// recognise echoes of its own writes
	MacID string `json:"macId,omitempty"`

	Payload map[string]interface{} `json:"-"`
}

// NewProjectUpdate builds an update routed to the subscribers of projectID
func NewProjectUpdate(kind ObjectKind, projectID string, payload map[string]interface{}) *Update {
	return &Update{Object: kind, Project: projectID, Payload: payload}
}

// NewUserUpdate builds an update routed to every connection of userID
func NewUserUpdate(kind ObjectKind, userID string, payload map[string]interface{}) *Update {
	return &Update{Object: kind, User: userID, Payload: payload}
}

// From records the originating user and session on the update
func (u *Update) From(userID, sessionID string) *Update {
	u.By = userID
	if len(sessionID) > sessionSuffixLen {
		sessionID = sessionID[len(sessionID)-sessionSuffixLen:]
	}
	u.MacID = sessionID
	return u
}

// Validate checks that the update can be routed
func (u *Update) Validate() error {
	switch {
	case u.Object.IsProjectScoped():
		if u.Project == "" {
			return fmt.Errorf("%w: %s update requires a project", ErrBadRequest, u.Object)
		}
	case u.Object.IsUserScoped():
		if u.User == "" {
			return fmt.Errorf("%w: %s update requires a user", ErrBadRequest, u.Object)
		}
	default:
		return fmt.Errorf("%w: unknown object kind %q", ErrBadRequest, u.Object)
	}
	return nil
}

// MarshalJSON flattens the payload next to the routing fields. Routing
// fields win over payload keys of the same name.
func (u Update) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(u.Payload)+6)
	for k, v := range u.Payload {
		out[k] = v
	}
	out["type"] = MessageTypeUpdate
	out["object"] = u.Object
	if u.Project != "" {
		out["project"] = u.Project
	}
	if u.User != "" {
		out["user"] = u.User
	}
	if u.By != "" {
		out["by"] = u.By
	}
	if u.MacID != "" {
		out["macId"] = u.MacID
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON: known keys fill the routing
// fields and everything else lands in Payload.
func (u *Update) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		v, _ := raw[key].(string)
		delete(raw, key)
		return v
	}

	*u = Update{
		Object:  ObjectKind(str("object")),
		Project: str("project"),
		User:    str("user"),
		By:      str("by"),
		MacID:   str("macId"),
	}
	delete(raw, "type")
	if len(raw) > 0 {
		u.Payload = raw
	}
	return nil
}
