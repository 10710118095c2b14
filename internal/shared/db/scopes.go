package db

import "gorm.io/gorm"

// InsertionOrder orders rows by their auto-increment primary key, oldest first.
func InsertionOrder() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}
}

// AfterID continues an InsertionOrder listing past the row with the given key. Zero starts
// from the beginning.
func AfterID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if id == 0 {
			return db
		}
		return db.Where("id > ?", id)
	}
}

// Limit applies a row cap; non-positive values leave the query unbounded.
func Limit(n int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if n <= 0 {
			return db
		}
		return db.Limit(n)
	}
}
