package models

import (
	"net/mail"
	"strings"
)

const MaxInterests = 5

// KidRegistrationDraft accumulates the kid signup wizard input. Each named
// step validates its own slice of the draft so the UI can advance one step at
// a time; RegisterKid submits the whole draft at once and runs every step.
type KidRegistrationDraft struct {
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	DisplayName  string   `json:"display_name"`
	Age          int      `json:"age"`
	School       string   `json:"school"`
	Interests    []string `json:"interests"`
	ParentEmail  string   `json:"parent_email"`
	ReferralCode string   `json:"referral_code"`
}

// RegistrationStep is one named step of the kid signup wizard.
type RegistrationStep struct {
	Name     string
	Validate func(d *KidRegistrationDraft) map[string]string
}

// KidRegistrationSteps returns the wizard steps in order. Step order is fixed
// by position in the slice, never by a raw index stored elsewhere.
func KidRegistrationSteps() []RegistrationStep {
	return []RegistrationStep{
		{Name: "profile", Validate: validateProfileStep},
		{Name: "school", Validate: validateSchoolStep},
		{Name: "interests", Validate: validateInterestsStep},
		{Name: "parent_link", Validate: validateParentLinkStep},
	}
}

// Validate runs every wizard step against the draft and merges the results.
func (d *KidRegistrationDraft) Validate() map[string]string {
	errors := make(map[string]string)
	for _, step := range KidRegistrationSteps() {
		for field, msg := range step.Validate(d) {
			if _, seen := errors[field]; !seen {
				errors[field] = msg
			}
		}
	}
	return errors
}

func validateProfileStep(d *KidRegistrationDraft) map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(d.Email) == "" {
		errors["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(d.Email); err != nil {
		errors["email"] = "Email is invalid"
	}
	if d.Password == "" {
		errors["password"] = "Password is required"
	} else if len(d.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}
	if strings.TrimSpace(d.DisplayName) == "" {
		errors["display_name"] = "Display name is required"
	}
	if d.Age < 6 || d.Age > 17 {
		errors["age"] = "Age must be between 6 and 17"
	}

	return errors
}

func validateSchoolStep(d *KidRegistrationDraft) map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(d.School) == "" {
		errors["school"] = "School name is required"
	}

	return errors
}

func validateInterestsStep(d *KidRegistrationDraft) map[string]string {
	errors := make(map[string]string)

	if len(d.Interests) > MaxInterests {
		errors["interests"] = "At most 5 interests can be selected"
	}
	for _, tag := range d.Interests {
		if strings.TrimSpace(tag) == "" {
			errors["interests"] = "Interest tags cannot be empty"
			break
		}
	}

	return errors
}

func validateParentLinkStep(d *KidRegistrationDraft) map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(d.ParentEmail) == "" {
		errors["parent_email"] = "A parent email is required"
	} else if _, err := mail.ParseAddress(d.ParentEmail); err != nil {
		errors["parent_email"] = "Parent email is invalid"
	}

	return errors
}
