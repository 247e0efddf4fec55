package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)

	type form struct {
		Title string `json:"title" validate:"required,notblank"`
		Date  string `json:"date" validate:"required,datetime=2006-01-02"`
		Score int    `json:"score" validate:"min=1,max=5"`
	}

	tests := []struct {
		name string
		form form
		want map[string]string
	}{
		{
			name: "blank & missing",
			form: form{Title: "   ", Score: 1},
			want: map[string]string{"title": notBlankText, "date": requiredText},
		},
		{
			name: "bad date & low score",
			form: form{Title: "GopherCon", Date: "31/01/2030", Score: 0},
			want: map[string]string{"date": datetimeText, "score": "must be at least 1"},
		},
		{
			name: "high score",
			form: form{Title: "GopherCon", Date: "2030-01-31", Score: 6},
			want: map[string]string{"score": "must be at most 5"},
		},
		{
			name: "valid",
			form: form{Title: "GopherCon", Date: "2030-01-31", Score: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.form)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "unexpected error: %v", err)

			got := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterCustomTranslation(t *testing.T) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()

	assert.Panics(t, func() { RegisterCustomTranslation(validate, translator, "lol", "skips {1}") }, "bad param syntax")

	RegisterCustomTranslation(validate, translator, "lol", "lol text")
	assert.Panics(t, func() { RegisterCustomTranslation(validate, translator, "lol", "other text") }, "conflict")
	assert.NotPanics(t, func() { RegisterCustomTranslation(validate, translator, "lol", "other text", true) })
}
