// Package models defines the core data structures shared by the client
// packages: users, collections and flashcards.
package models

import (
	"encoding/json"
	"time"
)

// User is the authenticated user's profile as returned by the API.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Username is the login handle.
	Username string `json:"username"`
	// Email is the user's email address.
	Email string `json:"email"`
}

// DisplayName returns the name, falling back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// UnmarshalJSON accepts both "id" and "_id" as the identifier key.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string `json:"id"`
		MongoID  string `json:"_id"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User{
		ID:       firstNonEmpty(raw.ID, raw.MongoID),
		Name:     raw.Name,
		Username: raw.Username,
		Email:    raw.Email,
	}
	return nil
}

// Owner references the user a collection belongs to. The API sends either
// a bare id or a populated user object.
type Owner struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Username     string `json:"username,omitempty"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
}

// DisplayName returns the owner's name, username, or id in that order.
func (o Owner) DisplayName() string {
	return firstNonEmpty(o.Name, o.Username, o.ID)
}

// UnmarshalJSON decodes either a JSON string id or a user object.
func (o *Owner) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*o = Owner{ID: id}
		return nil
	}
	var raw struct {
		ID           string `json:"id"`
		MongoID      string `json:"_id"`
		Name         string `json:"name"`
		Username     string `json:"username"`
		ProfilePhoto string `json:"profilePhoto"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Owner{
		ID:           firstNonEmpty(raw.ID, raw.MongoID),
		Name:         raw.Name,
		Username:     raw.Username,
		ProfilePhoto: raw.ProfilePhoto,
	}
	return nil
}

// Collection is a named, ordered set of flashcards (a deck).
type Collection struct {
	// ID is the unique identifier of the collection.
	ID string `json:"id"`
	// Name is the collection title shown to users.
	Name string `json:"name"`
	// Description is optional free text.
	Description string `json:"description,omitempty"`
	// Owner references the owning user.
	Owner Owner `json:"user"`
	// IsPublic reports whether the collection is shared with everyone.
	IsPublic bool `json:"isPublic"`
	// CardCount is the number of flashcards in the collection.
	CardCount int `json:"cardCount"`
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts "_id" for the identifier and tolerates a missing
// or null owner.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"id"`
		MongoID     string          `json:"_id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		User        json.RawMessage `json:"user"`
		IsPublic    bool            `json:"isPublic"`
		CardCount   int             `json:"cardCount"`
		CreatedAt   time.Time       `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var owner Owner
	if len(raw.User) > 0 && string(raw.User) != "null" {
		if err := json.Unmarshal(raw.User, &owner); err != nil {
			return err
		}
	}
	*c = Collection{
		ID:          firstNonEmpty(raw.ID, raw.MongoID),
		Name:        raw.Name,
		Description: raw.Description,
		Owner:       owner,
		IsPublic:    raw.IsPublic,
		CardCount:   raw.CardCount,
		CreatedAt:   raw.CreatedAt,
	}
	return nil
}

// Flashcard is a question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// CollectionDetail is a collection together with its ordered cards.
type CollectionDetail struct {
	Collection Collection  `json:"collection"`
	Flashcards []Flashcard `json:"flashcards"`
}

// RegisterRequest holds the registration form fields sent to the API.
type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewCollectionRequest is the payload for creating an empty collection.
type NewCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
