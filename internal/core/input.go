package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// EntryInput carries the raw values of the create/update form.
type EntryInput struct {
	District             string `json:"district" validate:"required"`
	TotalChildren        string `json:"totalChildren" validate:"required"`
	OutOfSchoolChildren  string `json:"outOfSchoolChildren" validate:"required"`
	GirlsPercentage      string `json:"girlsPercentage"`
	BoysPercentage       string `json:"boysPercentage"`
	PovertyPercentage    string `json:"povertyPercentage" validate:"required"`
	DisabilityPercentage string `json:"disabilityPercentage" validate:"required"`
	OtherPercentage      string `json:"otherPercentage" validate:"required"`
	ProgramType          string `json:"programType"`
	Date                 string `json:"date" validate:"required"`
}

// InputFields lists the form keys in display order.
var InputFields = []string{
	"district", "totalChildren", "outOfSchoolChildren",
	"girlsPercentage", "boysPercentage", "povertyPercentage",
	"disabilityPercentage", "otherPercentage", "programType", "date",
}

var ErrMissingFields = errors.New("missing required fields")

// MissingFieldsError names the required form keys left empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingFields, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Unwrap() error { return ErrMissingFields }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			return name
		})
	})
	return validate
}

// Validate checks that every required field was filled in. Values are not
// range checked.
func (in EntryInput) Validate() error {
	err := inputValidator().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return &MissingFieldsError{Fields: missing}
}

// ToEntry converts the form into an Entry. Counts keep their leading
// integer, percentages their leading decimal; unreadable values become 0.
func (in EntryInput) ToEntry() Entry {
	return Entry{
		District:             Text(in.District),
		TotalChildren:        Number(parseIntPrefix(in.TotalChildren)),
		OutOfSchoolChildren:  Number(parseIntPrefix(in.OutOfSchoolChildren)),
		GirlsPercentage:      Number(parseFloatPrefix(in.GirlsPercentage)),
		BoysPercentage:       Number(parseFloatPrefix(in.BoysPercentage)),
		PovertyPercentage:    Number(parseFloatPrefix(in.PovertyPercentage)),
		DisabilityPercentage: Number(parseFloatPrefix(in.DisabilityPercentage)),
		OtherPercentage:      Number(parseFloatPrefix(in.OtherPercentage)),
		ProgramType:          Text(in.ProgramType),
		Date:                 Text(in.Date),
	}
}

// InputFromEntry fills the form from a stored entry, for editing.
func InputFromEntry(e Entry) EntryInput {
	return EntryInput{
		District:             e.District.String(),
		TotalChildren:        formValue(e.TotalChildren),
		OutOfSchoolChildren:  formValue(e.OutOfSchoolChildren),
		GirlsPercentage:      formValue(e.GirlsPercentage),
		BoysPercentage:       formValue(e.BoysPercentage),
		PovertyPercentage:    formValue(e.PovertyPercentage),
		DisabilityPercentage: formValue(e.DisabilityPercentage),
		OtherPercentage:      formValue(e.OtherPercentage),
		ProgramType:          e.ProgramType.String(),
		Date:                 e.Date.String(),
	}
}

// formValue leaves zero values blank so the form shows an empty field.
func formValue(n Number) string {
	if n == 0 {
		return ""
	}
	b, _ := n.MarshalJSON()
	return string(b)
}
