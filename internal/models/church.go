package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Church represents a local church of the organization.
type Church struct {
	DefaultModel
	Name   string `gorm:"uniqueIndex"`
	City   string
	Pastor string
	Phone  string
	Active bool
}

var (
	ErrChurchNameNotUnique = errors.New("the church name must be unique")
	ErrChurchNameEmpty     = errors.New("the church name must be set")
	ErrChurchInactive      = errors.New("the church is deactivated")
)

// BeforeSave trims whitespace from all strings and verifies that the name
// stays unique. The unique index on the name column remains as a backstop
// for concurrent writes.
func (c *Church) BeforeSave(tx *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.City = strings.TrimSpace(c.City)
	c.Pastor = strings.TrimSpace(c.Pastor)
	c.Phone = strings.TrimSpace(c.Phone)

	if c.Name == "" {
		return ErrChurchNameEmpty
	}

	var count int64
	err := tx.Model(&Church{}).Where("name = ? AND id != ?", c.Name, c.ID).Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrChurchNameNotUnique
	}

	return nil
}

// Deactivate marks the church as inactive. Reports and transactions that
// reference it stay readable, new ones are rejected.
func (c *Church) Deactivate(db *gorm.DB) error {
	if !c.Active {
		return nil
	}

	c.Active = false
	return db.Model(c).Select("Active").Updates(*c).Error
}

// checkChurchActive verifies that the referenced church exists and still
// accepts new resources.
func checkChurchActive(tx *gorm.DB, id uuid.UUID) error {
	var church Church
	err := tx.First(&church, id).Error
	if err != nil {
		return err
	}

	if !church.Active {
		return ErrChurchInactive
	}

	return nil
}
