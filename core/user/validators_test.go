package user

import (
	"bytes"
	"compress/gzip"
	"testing"
	"testing/fstest"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confsys/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func gzipLines(t *testing.T, lines string) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(lines))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	RegisterValidators(validate, translator)
	return validate, translator
}

func TestPasswordPolicy(t *testing.T) {
	fsys := fstest.MapFS{"pwds.txt.gz": {Data: gzipLines(t, "password\nP@ssw0rd123\n")}}
	LoadCommonPasswords(fsys, "pwds.txt.gz", nopLogger{})

	validate, translator := newValidator()

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abc 123 !x", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "not complex", pwd: "abcdefgh1", wantTag: pwdComplexityTag},
		{name: "similar to attrs", pwd: "Alice.Smith1", wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd123", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "Sup3r-S3cret!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Email:           "alice@example.com",
				FirstName:       "Alice",
				LastName:        "Smith",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := validate.Struct(nu)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			require.Len(t, verrs, 1)
			assert.Equal(t, "password", verrs[0].Field())
			assert.Equal(t, tt.wantTag, verrs[0].Tag())
			assert.NotEmpty(t, verrs[0].Translate(translator))
		})
	}
}

func TestResetUserPasswordValidate(t *testing.T) {
	validate, _ := newValidator()

	rp := ResetUserPassword{Token: "t", UID: "u", Password: "Sup3r-S3cret!", PasswordConfirm: "nope"}
	err := rp.Validate(validate)
	require.Error(t, err)
	verrs := err.(validator.ValidationErrors)
	assert.Equal(t, "password_confirm", verrs[0].Field())

	rp.PasswordConfirm = rp.Password
	assert.NoError(t, rp.Validate(validate))
}
