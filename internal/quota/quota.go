// Package quota enforces per-user storage limits based on the sum of
// stored file sizes.
package quota

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/models"
)

// GetUsed returns the total size in bytes of all files owned by the user.
func GetUsed(db *sql.DB, userID int64) (int64, error) {
	used, err := database.GetUserStorageUsed(db, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get storage used: %w", err)
	}

	return used, nil
}

// GetAvailable returns how many bytes the user may still store. Never
// negative, even if the limit was lowered below current usage.
func GetAvailable(db *sql.DB, user *models.User) (int64, error) {
	used, err := GetUsed(db, user.ID)
	if err != nil {
		return 0, err
	}

	available := user.StorageLimit - used
	if available < 0 {
		available = 0
	}

	return available, nil
}

// HasEnoughStorage reports whether the user can store an additional
// size bytes without exceeding their limit.
func HasEnoughStorage(db *sql.DB, user *models.User, size int64) (bool, error) {
	used, err := GetUsed(db, user.ID)
	if err != nil {
		return false, err
	}

	return used+size <= user.StorageLimit, nil
}

// GetInfo returns a summary of the user's storage usage.
func GetInfo(db *sql.DB, user *models.User) (*models.StorageInfo, error) {
	used, err := GetUsed(db, user.ID)
	if err != nil {
		return nil, err
	}

	available := user.StorageLimit - used
	if available < 0 {
		available = 0
	}

	var pct int
	if user.StorageLimit > 0 {
		pct = int(math.Round(float64(used) / float64(user.StorageLimit) * 100))
	}

	return &models.StorageInfo{
		Used:           used,
		Limit:          user.StorageLimit,
		Available:      available,
		UsedPercentage: pct,
	}, nil
}
