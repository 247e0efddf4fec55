package conference

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confsys/core"
)

func TestSubmissionsOpen(t *testing.T) {
	conf := Conference{EndDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)}
	kinshasa := time.FixedZone("WAT", 60*60)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "day before", now: time.Date(2023, time.December, 31, 12, 0, 0, 0, time.UTC), want: true},
		{name: "end date start", now: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), want: true},
		{name: "end date last second", now: time.Date(2024, time.January, 1, 23, 59, 59, 0, time.UTC), want: true},
		{name: "day after", now: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), want: false},
		{name: "day after local time", now: time.Date(2024, time.January, 2, 0, 30, 0, 0, kinshasa), want: true},
		{name: "long after", now: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, conf.SubmissionsOpen(tt.now))
		})
	}
}

func TestHasTrack(t *testing.T) {
	conf := Conference{Tracks: []Track{{ID: "t1"}, {ID: "t2"}}}
	assert.True(t, conf.HasTrack("t2"))
	assert.False(t, conf.HasTrack("t3"))
	assert.False(t, Conference{}.HasTrack(""))
}

func TestNewConferenceValidate(t *testing.T) {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	tests := []struct {
		name      string
		nc        NewConference
		wantField string
	}{
		{
			name:      "blank title",
			nc:        NewConference{Title: "  ", Institute: "MIT", StartDate: "2024-01-01", EndDate: "2024-01-02"},
			wantField: "title",
		},
		{
			name:      "bad date",
			nc:        NewConference{Title: "GopherCon", Institute: "MIT", StartDate: "01/01/2024", EndDate: "2024-01-02"},
			wantField: "start_date",
		},
		{
			name:      "ends before start",
			nc:        NewConference{Title: "GopherCon", Institute: "MIT", StartDate: "2024-01-02", EndDate: "2024-01-01"},
			wantField: "end_date",
		},
		{
			name: "valid",
			nc:   NewConference{Title: " GopherCon ", Institute: "MIT", StartDate: "2024-01-01", EndDate: "2024-01-01"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nc.Validate(validate)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "GopherCon", tt.nc.Title)
				return
			}
			require.Error(t, err)
			switch verr := err.(type) {
			case validator.ValidationErrors:
				assert.Equal(t, tt.wantField, verr[0].Field())
			case *core.ValidationError:
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
			default:
				t.Fatalf("unexpected error type %T", err)
			}
		})
	}
}
