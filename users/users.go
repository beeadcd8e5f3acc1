package users

import (
	"strings"
	"time"
)

// SkillLevel is the self-reported level a player joins matches at.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// User is the signed-in player's profile as returned by GET /users/me.
type User struct {
	ID         string     `json:"id"`                  // Unique identifier for the user
	Email      string     `json:"email,omitempty"`     // User's email address
	Username   string     `json:"username,omitempty"`  // Unique handle shown in match lists and chat
	FirstName  string     `json:"firstName,omitempty"` // First name of the user
	LastName   string     `json:"lastName,omitempty"`  // Last name of the user
	AvatarURL  string     `json:"avatarUrl,omitempty"`
	City       string     `json:"city,omitempty"`         // Used to rank nearby matches
	Sports     []string   `json:"sports,omitempty"`       // Sports the user plays, e.g. "football", "padel"
	Skill      SkillLevel `json:"skillLevel,omitempty"`   // Self-reported skill level
	Rating     float64    `json:"rating,omitempty"`       // Average feedback rating from other players (0-5)
	Matches    int        `json:"matchesPlayed,omitempty"` // Number of finished matches
	DateJoined time.Time  `json:"dateJoined,omitzero"`    // Date and time when the user registered
}

// DisplayName prefers the full name, then the username, then the email.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// PlaysSport reports whether sport is on the user's profile, ignoring case.
func (u *User) PlaysSport(sport string) bool {
	for _, s := range u.Sports {
		if strings.EqualFold(s, sport) {
			return true
		}
	}
	return false
}
