package school_test

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
)

func newTestValidator() *validator.Validate {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

func TestNewGradeValidateName(t *testing.T) {
	validate := newTestValidator()

	tests := []struct {
		name    string
		grade   string
		wantTag string
	}{
		{name: "plain name", grade: "Beginners"},
		{name: "name with spaces and digits", grade: "Grade 1"},
		{name: "empty name", grade: "   ", wantTag: "required"},
		{name: "punctuation rejected", grade: "Grade #1!", wantTag: "alphanum_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ng := school.NewGrade{Name: tt.grade}
			err := ng.Validate(validate)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			require.Len(t, vErrs, 1)
			assert.Equal(t, "name", vErrs[0].Field())
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
		})
	}
}

func TestUpdateGradeValidateName(t *testing.T) {
	validate := newTestValidator()
	orig := school.Grade{ID: "g1", Name: "Beginners"}

	// an omitted name keeps the original
	ug := school.UpdateGrade{}
	require.NoError(t, ug.Validate(orig, validate))
	assert.Equal(t, "Beginners", ug.Name)

	ug = school.UpdateGrade{Name: "Grade <1>"}
	var vErrs validator.ValidationErrors
	require.ErrorAs(t, ug.Validate(orig, validate), &vErrs)
	assert.Equal(t, "alphanum_", vErrs[0].Tag())
}
