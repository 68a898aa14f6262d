package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validDraft() *KidRegistrationDraft {
	return &KidRegistrationDraft{
		Email:       "sam@example.com",
		Password:    "super secret",
		DisplayName: "Sam",
		Age:         11,
		School:      "Lincoln Elementary",
		Interests:   []string{"lego", "dinosaurs"},
		ParentEmail: "pat@example.com",
	}
}

func TestKidRegistrationStepsOrder(t *testing.T) {
	steps := KidRegistrationSteps()
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{"profile", "school", "interests", "parent_link"}, names)
}

func TestKidRegistrationDraftValid(t *testing.T) {
	require.Empty(t, validDraft().Validate())
}

func TestProfileStepValidation(t *testing.T) {
	d := validDraft()
	d.Email = "not-an-email"
	d.Password = "short"
	d.Age = 23
	errs := d.Validate()
	require.Contains(t, errs, "email")
	require.Contains(t, errs, "password")
	require.Contains(t, errs, "age")

	d = validDraft()
	d.Age = 5
	require.Contains(t, d.Validate(), "age")
}

func TestSchoolStepValidation(t *testing.T) {
	d := validDraft()
	d.School = "   "
	require.Contains(t, d.Validate(), "school")
}

func TestInterestsStepValidation(t *testing.T) {
	d := validDraft()
	d.Interests = []string{"a", "b", "c", "d", "e", "f"}
	require.Contains(t, d.Validate(), "interests")

	d = validDraft()
	d.Interests = []string{"lego", " "}
	require.Contains(t, d.Validate(), "interests")

	d = validDraft()
	d.Interests = nil
	require.Empty(t, d.Validate())
}

func TestParentLinkStepValidation(t *testing.T) {
	d := validDraft()
	d.ParentEmail = ""
	require.Contains(t, d.Validate(), "parent_email")

	d = validDraft()
	d.ParentEmail = "pat@@example"
	require.Contains(t, d.Validate(), "parent_email")
}
