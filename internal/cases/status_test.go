package cases

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowAllAcceptsAnything(t *testing.T) {
	tt := AllowAll()
	assert.False(t, tt.Strict())
	assert.True(t, tt.Allows(StatusApproved, StatusPendingReview))
	assert.True(t, tt.Allows(StatusRejected, "Escalated"))
	assert.Nil(t, tt.Next(StatusApproved))
}

func TestReviewWorkflow(t *testing.T) {
	tt := ReviewWorkflow()
	assert.True(t, tt.Strict())

	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPendingReview, StatusInReview, true},
		{StatusPendingReview, StatusApproved, false},
		{StatusInReview, StatusAdditionalInfoRequired, true},
		{StatusAdditionalInfoRequired, StatusInReview, true},
		{StatusInReview, StatusApproved, true},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusInReview, false},
		{"Escalated", StatusInReview, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, tt.Allows(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.Equal(t, []Status{StatusAdditionalInfoRequired, StatusApproved, StatusRejected}, tt.Next(StatusInReview))
	assert.Empty(t, tt.Next(StatusApproved))
}

func TestKnownStatus(t *testing.T) {
	assert.True(t, StatusAdditionalInfoRequired.Known())
	assert.False(t, Status("approved").Known())
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "MOP-2024-007", FormatID("MOP", 2024, 7))
	assert.Equal(t, "MOP-2024-1234", FormatID("MOP", 2024, 1234))
}
