package db

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCatImage is used when a profile has no photos.
const DefaultCatImage = "https://placekitten.com/400/400"

//go:embed sample_cats.yaml
var sampleCatsYAML []byte

type sampleFile struct {
	Cats []sampleCat `yaml:"cats"`
}

type sampleCat struct {
	ID    string `yaml:"id"`
	Owner struct {
		ID          string `yaml:"id"`
		DisplayName string `yaml:"displayName"`
		PhotoURL    string `yaml:"photoURL"`
	} `yaml:"owner"`
	Name   string   `yaml:"name"`
	Age    int      `yaml:"age"`
	Breed  string   `yaml:"breed"`
	Bio    string   `yaml:"bio"`
	Photos []string `yaml:"photos"`
}

// SampleCats decodes the embedded demo profiles.
func SampleCats() ([]Cat, []User, error) {
	var f sampleFile
	if err := yaml.Unmarshal(sampleCatsYAML, &f); err != nil {
		return nil, nil, fmt.Errorf("failed to decode sample cats: %w", err)
	}

	cats := make([]Cat, 0, len(f.Cats))
	users := make([]User, 0, len(f.Cats))
	for _, sc := range f.Cats {
		image := DefaultCatImage
		if len(sc.Photos) > 0 {
			image = sc.Photos[0]
		}
		users = append(users, User{
			ID:          sc.Owner.ID,
			DisplayName: sc.Owner.DisplayName,
			PhotoURL:    sc.Owner.PhotoURL,
		})
		cats = append(cats, Cat{
			ID:         sc.ID,
			UserID:     sc.Owner.ID,
			Name:       sc.Name,
			Age:        sc.Age,
			Breed:      sc.Breed,
			Bio:        sc.Bio,
			Photos:     sc.Photos,
			Image:      image,
			OwnerName:  sc.Owner.DisplayName,
			OwnerPhoto: sc.Owner.PhotoURL,
			IsSample:   true,
		})
	}
	return cats, users, nil
}

// SeedSampleData upserts the demo owners and their cats.
//
// Behavior:
//  1. With reset, clears messages, matches, swipes, cats and users first.
//  2. Upserts every sample owner and cat by primary key, so running it twice
//     leaves one copy of each and keeps swipes against them valid.
func SeedSampleData(db *gorm.DB, reset bool) (int, error) {
	if reset {
		for _, table := range []string{"messages", "matches", "swipes", "cats", "users"} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				return 0, fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
	}

	cats, users, err := SampleCats()
	if err != nil {
		return 0, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "photo_url", "updated_at"}),
		}).Create(&users).Error; err != nil {
			return fmt.Errorf("failed to seed owners: %w", err)
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "age", "breed", "bio", "photos", "image",
				"owner_name", "owner_photo", "is_sample", "updated_at",
			}),
		}).Create(&cats).Error; err != nil {
			return fmt.Errorf("failed to seed cats: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(cats), nil
}
