package legacy

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the page aggregate schema using Gorm's AutoMigrate and logs progress.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "legacy.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying legacy page schema")
	}

	models := []any{
		&Page{},
		&GeneralKnowledge{},
		&MemorialDetails{},
		&MediaItem{},
		&Event{},
		&Relationship{},
		&Insight{},
	}
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("legacy page schema migration failed")
		}
		return eris.Wrap(err, "auto migrating legacy page schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("legacy page schema migration complete")
	}

	return nil
}
