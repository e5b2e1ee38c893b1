package models

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdempotencyStatus tracks how far a request with an idempotency key got.
type IdempotencyStatus string

const (
	IdempotencyStarted   IdempotencyStatus = "started"
	IdempotencySucceeded IdempotencyStatus = "succeeded"
	IdempotencyFailed    IdempotencyStatus = "failed"
)

var ErrIdempotencyInFlight = errors.New("a request with this idempotency key is still running")

// IdempotencyKey stores the outcome of a mutating request so that clients
// can retry it safely. The key is unique per handler.
type IdempotencyKey struct {
	DefaultModel
	Key       string            `json:"key" gorm:"uniqueIndex:idempotency_key_handler"`
	Handler   string            `json:"handler" gorm:"uniqueIndex:idempotency_key_handler"`
	Status    IdempotencyStatus `json:"status"`
	Resources string            `json:"resources"` // JSON encoded IDs of the resources the request created
}

// StartIdempotency claims the key for the handler.
//
// The bool reports a replay: the key was already used successfully and the
// caller should return the stored resources instead of running the request
// again. A key still in flight returns ErrIdempotencyInFlight. A failed key
// is claimed again so the request can be retried.
func StartIdempotency(db *gorm.DB, key, handler string) (IdempotencyKey, bool, error) {
	var record IdempotencyKey

	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where(IdempotencyKey{Key: key, Handler: handler}).First(&record).Error
		if err == nil {
			switch record.Status {
			case IdempotencySucceeded:
				return nil
			case IdempotencyStarted:
				return ErrIdempotencyInFlight
			default:
				record.Status = IdempotencyStarted
				return tx.Model(&record).Select("Status").Updates(IdempotencyKey{Status: IdempotencyStarted}).Error
			}
		}

		if !errors.Is(err, ErrResourceNotFound) {
			return err
		}

		record = IdempotencyKey{Key: key, Handler: handler, Status: IdempotencyStarted}
		return tx.Create(&record).Error
	})
	if err != nil {
		return IdempotencyKey{}, false, err
	}

	return record, record.Status == IdempotencySucceeded, nil
}

// Succeed stores the created resources for replays.
func (k *IdempotencyKey) Succeed(db *gorm.DB, ids ...uuid.UUID) error {
	resources, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	k.Status = IdempotencySucceeded
	k.Resources = string(resources)
	return db.Model(k).Select("Status", "Resources").Updates(*k).Error
}

// Fail releases the key so the request can be retried.
func (k *IdempotencyKey) Fail(db *gorm.DB) error {
	k.Status = IdempotencyFailed
	return db.Model(k).Select("Status").Updates(*k).Error
}

// ResourceIDs returns the IDs stored by Succeed.
func (k IdempotencyKey) ResourceIDs() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if k.Resources == "" {
		return ids, nil
	}

	err := json.Unmarshal([]byte(k.Resources), &ids)
	return ids, err
}
