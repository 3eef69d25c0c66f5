// ABOUTME: User account model covering Google and local sign-in.
// ABOUTME: Carries onboarding profile fields set after the tutorial.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Auth providers a user can sign in with.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User is a wellness account. ID is the opaque owner id attached to facts.
type User struct {
	ID                             uuid.UUID `json:"id" yaml:"id"`
	Email                          string    `json:"email" yaml:"email"`
	PasswordHash                   *string   `json:"-" yaml:"-"`
	Provider                       string    `json:"provider" yaml:"provider"`
	Nickname                       *string   `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	Major                          *string   `json:"major,omitempty" yaml:"major,omitempty"`
	Emotion                        *string   `json:"emotion,omitempty" yaml:"emotion,omitempty"`
	SleepScore                     *float64  `json:"sleepScore,omitempty" yaml:"sleep_score,omitempty"`
	StressLevel                    *float64  `json:"stressLevel,omitempty" yaml:"stress_level,omitempty"`
	TutorialCompleted              bool      `json:"tutorialCompleted" yaml:"tutorial_completed"`
	RoutineRecommendationTriggered bool      `json:"routineRecommendationTriggered" yaml:"routine_recommendation_triggered"`
	CreatedAt                      time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt                      time.Time `json:"updatedAt" yaml:"updated_at"`
}

// NewUser creates a User with a generated UUID. Timestamps are left zero
// for the store to stamp.
func NewUser(email, provider string) *User {
	return &User{
		ID:       uuid.New(),
		Email:    email,
		Provider: provider,
	}
}

// WithNickname sets the display name.
func (u *User) WithNickname(nickname string) *User {
	if nickname != "" {
		u.Nickname = &nickname
	}
	return u
}

// WithPasswordHash sets the stored bcrypt hash.
func (u *User) WithPasswordHash(hash string) *User {
	u.PasswordHash = &hash
	return u
}

// ProfileUpdate holds the fields written by onboarding and profile edits.
type ProfileUpdate struct {
	Nickname    *string
	Major       *string
	Emotion     *string
	SleepScore  *float64
	StressLevel *float64
	// CompleteTutorial marks the onboarding tutorial done.
	CompleteTutorial bool
}

// Profile is the public summary returned after profile changes.
type Profile struct {
	UserID                         string  `json:"userId"`
	Email                          string  `json:"email"`
	Nickname                       *string `json:"nickname"`
	Major                          *string `json:"major,omitempty"`
	Emotion                        *string `json:"emotion,omitempty"`
	TutorialCompleted              bool    `json:"tutorialCompleted"`
	RoutineRecommendationTriggered bool    `json:"routineRecommendationTriggered"`
}

// Profile returns the public view of the user.
func (u *User) Profile() Profile {
	return Profile{
		UserID:                         u.ID.String(),
		Email:                          u.Email,
		Nickname:                       u.Nickname,
		Major:                          u.Major,
		Emotion:                        u.Emotion,
		TutorialCompleted:              u.TutorialCompleted,
		RoutineRecommendationTriggered: u.RoutineRecommendationTriggered,
	}
}
