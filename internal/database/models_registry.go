package database

import "wallhub/internal/models"

// PersistentModels returns the tables the catalog reads and writes.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Image{},
		&models.UserProfile{},
		&models.ImageLike{},
	}
}
