package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportNote is an append only note on a report. Notes are the only change
// still allowed on a processed report.
type ReportNote struct {
	DefaultModel
	Report   Report    `json:"-"`
	ReportID uuid.UUID `json:"reportId"`
	ActorID  uuid.UUID `json:"actorId"` // Actor that wrote the note
	Text     string    `json:"text"`
}

var (
	ErrNoteEmpty     = errors.New("the note text must be set")
	ErrNoteImmutable = errors.New("notes can not be changed once written")
)

func (n *ReportNote) BeforeSave(_ *gorm.DB) error {
	n.Text = strings.TrimSpace(n.Text)

	if n.Text == "" {
		return ErrNoteEmpty
	}

	return nil
}

// BeforeCreate verifies the report reference.
func (n *ReportNote) BeforeCreate(tx *gorm.DB) error {
	_ = n.DefaultModel.BeforeCreate(tx)

	return tx.First(&Report{}, n.ReportID).Error
}

// BeforeUpdate blocks updates, notes are append only.
func (n *ReportNote) BeforeUpdate(_ *gorm.DB) error {
	return ErrNoteImmutable
}
