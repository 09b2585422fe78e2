package errx

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// WrapGorm maps gorm errors for entity to AppError. It relies on the
// TranslateError option so driver specific constraint errors arrive as
// gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated.
func WrapGorm(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		ae = NotFound(entity, id)
		ae.Err = err
		return ae
	case errors.Is(err, gorm.ErrDuplicatedKey):
		ae = Validation("%s already exists", entity)
		ae.Err = err
		return ae
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		ae = Conflict("%s references a missing or still referenced record", entity)
		ae.Err = err
		return ae
	}

	return Internal(err, fmt.Sprintf("%s: %s", DatabaseErrorMessage, entity))
}
