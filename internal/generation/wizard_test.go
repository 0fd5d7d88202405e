package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uadlabs/forge/internal/schemas"
)

func TestWizardFeasibility(t *testing.T) {
	verdict := `{"possible": true, "difficulty": "Medium", "reasoning": "IMU covers motion sensing", "missing_hardware": ["GPS"], "warnings": ["Battery drain high"]}`
	client := &fakeClient{responses: []string{"```json\n" + verdict + "\n```"}}

	w := &Wizard{Client: client}
	got, err := w.Feasibility(context.Background(), FeasibilityRequest{
		DeviceName:  "Trail Tracker",
		Purpose:     "track hikes offline",
		Refinements: "needs a week of battery",
	})
	require.NoError(t, err)

	assert.True(t, got.Possible)
	assert.Equal(t, "Medium", got.Difficulty)
	assert.Equal(t, []string{"GPS"}, got.MissingHardware)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Trail Tracker")
	assert.Contains(t, client.prompts[0], "REFINEMENTS: needs a week of battery")
}

func TestWizardFeasibilityRejectsBadVerdict(t *testing.T) {
	// Difficulty outside the enum must not reach the caller.
	client := &fakeClient{responses: []string{`{"possible": true, "difficulty": "Trivial", "reasoning": "x"}`}}

	w := &Wizard{Client: client}
	_, err := w.Feasibility(context.Background(), FeasibilityRequest{DeviceName: "x", Purpose: "y"})

	var ve *schemas.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestWizardUseCases(t *testing.T) {
	payload := `{"use_cases": [
		{"title": "Morning run", "description": "Track cadence", "icon": "🏃"},
		{"title": "Race day", "description": "Pace alerts"},
		{"title": "Recovery", "description": "Watch resting trends"}
	]}`
	client := &fakeClient{responses: []string{payload}}

	w := &Wizard{Client: client}
	cases, err := w.UseCases(context.Background(), "Run Coach", "cadence tracking")
	require.NoError(t, err)

	require.Len(t, cases, 3)
	assert.Equal(t, "Morning run", cases[0].Title)
	assert.Contains(t, client.prompts[0], "Run Coach")
}

func TestWizardUseCasesRejectsEmpty(t *testing.T) {
	client := &fakeClient{responses: []string{`{"use_cases": []}`}}

	w := &Wizard{Client: client}
	_, err := w.UseCases(context.Background(), "x", "y")

	var ve *schemas.ValidationError
	require.ErrorAs(t, err, &ve)
}
