package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenGenerator(t *testing.T) {
	tg := newTokenGenerator("secret", 3*24*time.Hour)

	now := time.Now()
	usr := User{
		ID:        "8a9c4e3e-2b0c-4bb1-9f57-3f0b6d3a2e11",
		FirstName: "T",
		LastName:  "T",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := tg.makeToken(usr)
	assert.NoError(t, err)

	// generate an expired token
	dayLate := tg.timeout + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := tg.makeToken(usr)
	assert.NoError(t, err)
	NowFunc = time.Now // reset

	loggedIn := usr
	loggedIn.LastLogin = now.Add(time.Minute)

	other := newTokenGenerator("other", tg.timeout)

	tests := []struct {
		name    string
		tg      tokenGenerator
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", tg: tg, usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", tg: tg, usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", tg: tg, usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", tg: tg, usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", tg: tg, usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", tg: tg, usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "user logged in since", tg: tg, usr: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "other secret", tg: other, usr: usr, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", tg: tg, usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.tg.verifyToken(tt.usr, tt.token))
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "8a9c4e3e-2b0c-4bb1-9f57-3f0b6d3a2e11"}
	uid, err := decodeUID(EncodeUID(usr))
	assert.NoError(t, err)
	assert.Equal(t, usr.ID, uid)

	_, err = decodeUID("!!")
	assert.Error(t, err)
}
