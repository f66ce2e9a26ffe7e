package contentfilter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"campusmarket/internal/contentfilter"
	"campusmarket/internal/domain"
)

func TestContains(t *testing.T) {
	f := contentfilter.New()

	tests := []struct {
		text string
		want bool
	}{
		{"Great desk, barely used", false},
		{"Not a SCAM I promise", true},
		{"Fakery-free hoodie", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Contains(tt.text))
		})
	}
}

func TestExtraWordsAreNormalized(t *testing.T) {
	f := contentfilter.New(" Replica ", "SPAM", "")
	assert.Equal(t, []string{"spam", "scam", "fake", "counterfeit", "replica"}, f.Words())
	assert.True(t, f.Contains("replica watch"))
}

func TestCheck(t *testing.T) {
	f := contentfilter.New()
	assert.NoError(t, f.Check("title", "Desk", "description", "Sturdy oak desk"))

	err := f.Check("title", "Desk", "description", "totally not fake")
	assert.ErrorIs(t, err, domain.ErrContentRejected)
	assert.EqualError(t, err, "description contains inappropriate content")
}
