package db

import (
	"strings"
	"time"
)

// DecisionKind is the direction-less verdict an actor records about a target.
type DecisionKind string

const (
	DecisionLike DecisionKind = "like"
	DecisionPass DecisionKind = "pass"
)

// MatchStatus tracks the lifecycle of a confirmed match. Unmatching is
// terminal; the row is never deleted and the pair stays mutually excluded
// from each other's candidate pool.
type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchUnmatched MatchStatus = "unmatched"
)

// Profile table. Holds the attributes the matching engine reads; the wider
// application owns the rest of the user record.
type Profile struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	FullName     string `gorm:"size:128"`
	Bio          string `gorm:"size:1024"`
	BirthDate    *time.Time
	Gender       string `gorm:"size:16"`
	Location     string `gorm:"size:128"`
	HeightCM     float64
	WeightKG     float64
	FitnessLevel string `gorm:"size:32"`

	// Matching preferences. Empty values mean "accepts anyone".
	PreferredGenders []string `gorm:"serializer:json"`
	PreferredAgeMin  int
	PreferredAgeMax  int

	Active       bool `gorm:"default:true;index"`
	LastActiveAt time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Complete reports whether the profile satisfies the required-field set that
// gates liking and candidate browsing. Recomputed from raw fields on every
// call; never cached in a column.
func (p Profile) Complete() bool {
	if strings.TrimSpace(p.Username) == "" ||
		strings.TrimSpace(p.FullName) == "" ||
		strings.TrimSpace(p.Bio) == "" ||
		strings.TrimSpace(p.Gender) == "" ||
		strings.TrimSpace(p.Location) == "" {
		return false
	}
	if p.BirthDate == nil || p.BirthDate.IsZero() {
		return false
	}
	return len(p.PreferredGenders) > 0
}

// Age in whole years at the given instant. Returns 0 when the birth date is
// unknown.
func (p Profile) Age(now time.Time) int {
	if p.BirthDate == nil || p.BirthDate.IsZero() {
		return 0
	}
	years := now.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// Accepts reports whether this profile's stated preferences admit the other
// profile. Absent preference data (no genders, zero age bounds) accepts
// anyone.
func (p Profile) Accepts(other Profile, now time.Time) bool {
	if len(p.PreferredGenders) > 0 {
		ok := false
		for _, g := range p.PreferredGenders {
			if strings.EqualFold(g, other.Gender) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	age := other.Age(now)
	if p.PreferredAgeMin > 0 && (age == 0 || age < p.PreferredAgeMin) {
		return false
	}
	if p.PreferredAgeMax > 0 && (age == 0 || age > p.PreferredAgeMax) {
		return false
	}
	return true
}

// Decision represents an actor's like/pass verdict on a target.
//
// Composite PK: (ActorID, TargetID), a single row per ordered pair.
// First write wins: inserts use ON CONFLICT DO NOTHING, so a duplicate
// submission returns the stored row unchanged.
//
// Index idx_target_actor_kind(target_id, actor_id, kind) serves the O(1)
// reciprocal-like lookup in the match resolver.
type Decision struct {
	ActorID   uint64       `gorm:"primaryKey"`
	TargetID  uint64       `gorm:"primaryKey;index:idx_target_actor_kind,priority:1"`
	Kind      DecisionKind `gorm:"size:8;not null;index:idx_target_actor_kind,priority:3"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
}

// Match is the confirmed mutual-like relationship for an unordered pair,
// stored canonically with UserAID < UserBID. The unique index on the pair is
// the concurrency control for exactly-once creation: whichever of two racing
// reciprocal likes inserts first wins, the loser reads the existing row.
type Match struct {
	ID        uint64      `gorm:"primaryKey;autoIncrement"`
	UserAID   uint64      `gorm:"not null;uniqueIndex:idx_match_pair,priority:1"`
	UserBID   uint64      `gorm:"not null;uniqueIndex:idx_match_pair,priority:2"`
	Status    MatchStatus `gorm:"size:16;not null;default:'active'"`
	CreatedAt time.Time   `gorm:"autoCreateTime"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime"`
}

// Other returns the match participant that is not the given user.
func (m Match) Other(userID uint64) uint64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// CanonicalPair orders two user ids so the smaller one comes first.
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Notification is a durable event record owned by its recipient. The payload
// is event-kind specific JSON.
type Notification struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	RecipientID uint64    `gorm:"not null;index:idx_notif_recipient_created,priority:1"`
	Kind        string    `gorm:"size:32;not null"`
	Payload     string    `gorm:"size:2048"`
	// column is_read; READ is a reserved word in MySQL
	IsRead    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_notif_recipient_created,priority:2,sort:desc"`
}

// Message belongs to the unordered (sender, receiver) conversation. Messages
// are only removed conversation-at-a-time, never individually.
type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	SenderID   uint64    `gorm:"not null;index"`
	ReceiverID uint64    `gorm:"not null;index"`
	Content    string    `gorm:"size:4096;not null"`
	IsRead     bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
