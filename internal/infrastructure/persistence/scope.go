package persistence

import (
	"errors"

	"github.com/bookkeeper/backend/internal/domain/numbering"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnerScope restricts a query to one owner's rows
func OwnerScope(ownerID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_id = ?", ownerID)
	}
}

// isDuplicateKey reports a unique-constraint violation. The dialector
// translates driver errors even when the gorm config leaves TranslateError off.
func isDuplicateKey(db *gorm.DB, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if translator, ok := db.Dialector.(gorm.ErrorTranslator); ok {
		return errors.Is(translator.Translate(err), gorm.ErrDuplicatedKey)
	}
	return false
}

// numberTaken maps a unique violation on an insert keyed by a fresh uuid to
// numbering.ErrNumberTaken. The only other unique key is (owner_id, number).
func numberTaken(db *gorm.DB, err error) error {
	if isDuplicateKey(db, err) {
		return numbering.ErrNumberTaken
	}
	return err
}
