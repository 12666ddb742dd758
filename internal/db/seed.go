package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedLocations = []string{"Praha", "Brno", "Ostrava", "Plzeň", "Olomouc"}

var seedFitnessLevels = []string{"beginner", "intermediate", "advanced"}

// SeedTestData resets the database and populates it with demo profiles,
// decisions and the matches those decisions imply.
//
// Behavior:
//  1. Clears profiles, decisions, matches, notifications and messages.
//  2. Creates 20 complete profiles (10 male, 10 female) with hashed passwords.
//  3. Generates ~200 decisions with ~70% likes; every 3rd decision is forced
//     mutual, and mutual pairs get their match row materialized.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"messages", "notifications", "matches", "decisions", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('matches', 'profiles', 'notifications', 'messages')")
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	for i := 1; i <= 20; i++ {
		gender, preferred := "male", "female"
		if i > 10 {
			gender, preferred = "female", "male"
		}

		birth := time.Date(1985+r.Intn(20), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC)

		profile := Profile{
			Username:         fmt.Sprintf("user%d", i),
			Email:            fmt.Sprintf("user%d@example.com", i),
			PasswordHash:     string(hash),
			FullName:         fmt.Sprintf("Demo User %d", i),
			Bio:              "Training most days, looking for a gym partner.",
			BirthDate:        &birth,
			Gender:           gender,
			Location:         seedLocations[r.Intn(len(seedLocations))],
			HeightCM:         155 + float64(r.Intn(40)),
			WeightKG:         50 + float64(r.Intn(50)),
			FitnessLevel:     seedFitnessLevels[r.Intn(len(seedFitnessLevels))],
			PreferredGenders: []string{preferred},
			Active:           true,
			LastActiveAt:     time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}

		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 profiles.")

	var profiles []Profile
	if err := db.Find(&profiles).Error; err != nil {
		return err
	}
	byID := make(map[uint64]Profile, len(profiles))
	ids := make([]uint64, 0, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	insertDecision := func(actor, target uint64, kind DecisionKind) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoNothing: true,
		}).Create(&Decision{ActorID: actor, TargetID: target, Kind: kind}).Error
	}

	counter := 0
	for _, actorID := range ids {
		for j := 0; j < 12; j++ {
			targetID := ids[r.Intn(len(ids))]
			if actorID == targetID {
				continue
			}
			if byID[actorID].Gender == byID[targetID].Gender {
				continue
			}

			kind := DecisionPass
			if r.Intn(100) < 70 {
				kind = DecisionLike
			}

			// guarantee a reciprocal like every 3rd pair
			if counter%3 == 0 {
				kind = DecisionLike
				if err := insertDecision(targetID, actorID, DecisionLike); err != nil {
					return fmt.Errorf("failed to seed reciprocal decision: %w", err)
				}
			}

			if err := insertDecision(actorID, targetID, kind); err != nil {
				return fmt.Errorf("failed to seed decision: %w", err)
			}

			// materialize the match only when the stored ledger really
			// holds likes in both directions (first write wins, so a
			// forced mutual may have landed on an earlier pass)
			var likes int64
			if err := db.Model(&Decision{}).
				Where("((actor_id = ? AND target_id = ?) OR (actor_id = ? AND target_id = ?)) AND kind = ?",
					actorID, targetID, targetID, actorID, DecisionLike).
				Count(&likes).Error; err != nil {
				return err
			}
			if likes == 2 {
				a, b := CanonicalPair(actorID, targetID)
				if err := db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
					DoNothing: true,
				}).Create(&Match{UserAID: a, UserBID: b, Status: MatchActive}).Error; err != nil {
					return fmt.Errorf("failed to seed match: %w", err)
				}
			}

			counter++
		}
	}

	log.Println("Seeded decisions and matches.")
	return nil
}
