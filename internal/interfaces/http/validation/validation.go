// Package validation binds gin request bodies and turns validator failures
// into validation AppErrors.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/chessforge/gamecore/internal/domain/game"
	"github.com/chessforge/gamecore/internal/shared/errors"
)

var (
	squarePattern      = regexp.MustCompile(`^[a-hA-H][1-8]$`)
	timeControlPattern = regexp.MustCompile(`^\d+(\.\d+)?\+\d+$`)
	registerOnce       sync.Once
)

// Register installs the custom rules and JSON field naming on gin's
// validator. It is safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("square", func(fl validator.FieldLevel) bool {
			return squarePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("fen", func(fl validator.FieldLevel) bool {
			return game.ValidateFEN(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("time_control", func(fl validator.FieldLevel) bool {
			return timeControlPattern.MatchString(fl.Field().String())
		})
	})
}

// BindJSON decodes the body into obj and validates it.
func BindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return translate(err)
	}
	return nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewValidationError("invalid request body", err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.NewValidationError("validation failed", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "square":
		return fmt.Sprintf("%s must be a board square such as e4", field)
	case "fen":
		return fmt.Sprintf("%s must be a valid FEN", field)
	case "time_control":
		return fmt.Sprintf("%s must look like 5+3", field)
	default:
		return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
	}
}
