package paper_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/confsys/core/paper"
	"github.com/trezcool/confsys/testutil"
)

func TestNewReviewScoreProperty(t *testing.T) {
	validate, _ := testutil.NewValidator()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("a score is valid iff it lies within [MinScore, MaxScore]", prop.ForAll(
		func(score int) bool {
			err := validate.Struct(paper.NewReview{Score: score})
			inRange := score >= paper.MinScore && score <= paper.MaxScore
			return (err == nil) == inRange
		},
		gen.IntRange(-100, 100),
	))

	properties.TestingRun(t)
}

func TestPaper_HasAuthor(t *testing.T) {
	p := paper.Paper{AuthorIDs: []string{"a", "b"}}
	assert.True(t, p.HasAuthor("a"))
	assert.True(t, p.HasAuthor("b"))
	assert.False(t, p.HasAuthor("c"))
	assert.False(t, p.HasAuthor(""))
}

func TestNewReviewComments(t *testing.T) {
	validate, _ := testutil.NewValidator()

	long := make([]byte, 5001)
	for i := range long {
		long[i] = 'x'
	}
	assert.NoError(t, validate.Struct(paper.NewReview{Score: 3, Comments: string(long[:5000])}))
	assert.Error(t, validate.Struct(paper.NewReview{Score: 3, Comments: string(long)}))
}
