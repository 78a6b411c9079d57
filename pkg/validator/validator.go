// Package validator extends validator.Validate with regex, byte size and charset tags.
package validator

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/forscht/rawbody/pkg/bytesize"
	"github.com/forscht/rawbody/pkg/charset"
)

// Validate is a custom validator that extends the base validator.Validate.
type Validate struct {
	*validator.Validate
}

// New creates a new instance of Validate with the custom tags registered:
//
//	regex=<expr>  string matches expr
//	bytesize      string parses as a byte size such as "1mb"
//	charset       string names a supported text encoding
func New() *Validate {
	validate := &Validate{Validate: validator.New()}

	tags := map[string]validator.Func{
		"regex":    validateRegex,
		"bytesize": validateByteSize,
		"charset":  validateCharset,
	}
	for tag, fn := range tags {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			log.Fatal().Str("c", "validator").Err(err).Str("tag", tag).Msg("failed to register validation")
		}
	}

	return validate
}

var (
	regexMu    sync.Mutex
	regexCache = map[string]*regexp.Regexp{}
)

// validateRegex checks that the field value matches the expression given as
// the tag parameter. Invalid expressions never match.
func validateRegex(fl validator.FieldLevel) bool {
	expr := fl.Param()

	regexMu.Lock()
	re, ok := regexCache[expr]
	if !ok {
		var err error
		if re, err = regexp.Compile(expr); err != nil {
			regexMu.Unlock()
			return false
		}
		regexCache[expr] = re
	}
	regexMu.Unlock()

	return re.MatchString(fl.Field().String())
}

func validateByteSize(fl validator.FieldLevel) bool {
	_, err := bytesize.Parse(fl.Field().String())
	return err == nil
}

func validateCharset(fl validator.FieldLevel) bool {
	return charset.Supported(fl.Field().String())
}
