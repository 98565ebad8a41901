package models

import (
	"gorm.io/gorm"
)

type migration struct {
	apply  func(db *gorm.DB) error
	revert func(db *gorm.DB) error
}

// Operation types
type operation int

const (
	apply  operation = 0
	revert           = 1
)

// Order matters: referenced tables come first so foreign keys resolve.
var coreTables = []interface{}{
	&User{}, &Profile{}, &Post{}, &PostImage{}, &Tag{}, &PostTag{},
	&Like{}, &Comment{}, &Follow{},
}

var migrations = []migration{
	// 001
	{
		apply: func(db *gorm.DB) error {
			for _, table := range coreTables {
				if !db.Migrator().HasTable(table) {
					if err := db.Migrator().CreateTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
		revert: func(db *gorm.DB) error {
			for i := len(coreTables) - 1; i >= 0; i-- {
				if err := db.Migrator().DropTable(coreTables[i]); err != nil {
					return err
				}
			}
			return nil
		},
	},
	// 002 OAuth provider links
	{
		apply: func(db *gorm.DB) error {
			if db.Migrator().HasTable(&SocialAuth{}) {
				return nil
			}
			return db.Migrator().CreateTable(&SocialAuth{})
		},
		revert: func(db *gorm.DB) error {
			return db.Migrator().DropTable(&SocialAuth{})
		},
	},
}

type MigrationConfig struct {
	ToIndex *int
}

func executeOperation(db *gorm.DB, config *MigrationConfig, op operation) error {
	toIndex := len(migrations)
	if config != nil && config.ToIndex != nil {
		toIndex = *config.ToIndex
	}

	switch op {
	case apply:
		for i := 0; i < toIndex; i++ {
			if err := migrations[i].apply(db); err != nil {
				return err
			}
		}
	case revert:
		for i := toIndex - 1; i >= 0; i-- {
			if err := migrations[i].revert(db); err != nil {
				return err
			}
		}
	}

	return nil
}

func Migrate(db *gorm.DB, config *MigrationConfig) error {
	return executeOperation(db, config, apply)
}

func Revert(db *gorm.DB, config *MigrationConfig) error {
	return executeOperation(db, config, revert)
}
