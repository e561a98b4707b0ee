package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
)

// Length rules count characters. The byte ceiling on passwords is the bcrypt
// input limit.
var (
	fullNameLength   = validation.RuneLength(2, 0).Error("full name must be at least 2 characters")
	passwordMinChars = validation.RuneLength(8, 0).Error("password must be at least 8 characters")
	passwordMaxBytes = validation.Length(0, MaxPasswordBytes).Error("password must be at most 72 bytes")
)

func passwordRules(required string) []validation.Rule {
	return []validation.Rule{validation.Required.Error(required), passwordMinChars, passwordMaxBytes}
}

// RegistrationRequest is the validated registration draft. It is independent
// of any wire format.
type RegistrationRequest struct {
	Email           string   `json:"email"`
	FullName        string   `json:"fullName"`
	Password        string   `json:"password"`
	Role            string   `json:"role"`
	Department      string   `json:"department"`
	AcademicYear    string   `json:"academicYear"`
	Phone           string   `json:"phone,omitempty"`
	StudentID       string   `json:"studentId,omitempty"`
	Qualification   string   `json:"qualification,omitempty"`
	Experience      string   `json:"experience,omitempty"`
	Office          string   `json:"office,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
	Bio             string   `json:"bio,omitempty"`
}

// Normalize trims every field, lower-cases the email and upper-cases the role.
func (r *RegistrationRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
	r.Department = strings.TrimSpace(r.Department)
	r.AcademicYear = strings.TrimSpace(r.AcademicYear)
	r.Phone = strings.TrimSpace(r.Phone)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.Qualification = strings.TrimSpace(r.Qualification)
	r.Experience = strings.TrimSpace(r.Experience)
	r.Office = strings.TrimSpace(r.Office)
	r.Bio = strings.TrimSpace(r.Bio)

	specs := make([]string, 0, len(r.Specializations))
	for _, s := range r.Specializations {
		if s = strings.TrimSpace(s); s != "" {
			specs = append(specs, s)
		}
	}
	r.Specializations = specs
}

// RequestedRole returns the parsed role. Call after Validate.
func (r RegistrationRequest) RequestedRole() Role {
	role, _ := ParseRole(r.Role)
	return role
}

// Validate will run validation rules. The request should be normalized first.
func (r RegistrationRequest) Validate() error {
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r, r.rules()...)
	}, "invalid registration payload"); verr != nil {
		return verr.WithTextCode(TextCodeValidation)
	}
	return nil
}

func (r *RegistrationRequest) rules() []*validation.FieldRules {
	rules := []*validation.FieldRules{
		validation.Field(&r.Email, validation.Required.Error("email is required"), is.EmailFormat.Error("invalid email address")),
		validation.Field(&r.FullName, validation.Required.Error("full name is required"), fullNameLength),
		validation.Field(&r.Password, passwordRules("password is required")...),
		validation.Field(&r.Role, validation.Required.Error("role is required"), validation.In(roleStrings()...).Error("role must be STUDENT, HOC or INSTRUCTOR")),
		validation.Field(&r.Department, validation.Required.Error("department is required")),
		validation.Field(&r.AcademicYear, validation.Required.Error("academic year is required")),
	}

	if Role(r.Role) == RoleHOC {
		rules = append(rules,
			validation.Field(&r.Phone, validation.Required.Error("phone is required for HOC requests")),
			validation.Field(&r.StudentID, validation.Required.Error("student id is required for HOC requests")),
		)
	}

	return rules
}

// LoginRequest holds the login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required.Error("email is required"), is.EmailFormat.Error("invalid email address")),
			validation.Field(&r.Password, validation.Required.Error("password is required")),
		)
	}, "invalid login payload"); verr != nil {
		return verr.WithTextCode(TextCodeValidation)
	}
	return nil
}

// ProfileUpdateRequest holds the editable profile fields. Empty fields are
// left unchanged. Instructor fields are accepted only for instructor accounts;
// a non-nil Specializations replaces the stored list.
type ProfileUpdateRequest struct {
	FullName        string   `json:"fullName,omitempty"`
	Department      string   `json:"department,omitempty"`
	AcademicYear    string   `json:"academicYear,omitempty"`
	Qualification   string   `json:"qualification,omitempty"`
	Experience      string   `json:"experience,omitempty"`
	Office          string   `json:"office,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
	Bio             string   `json:"bio,omitempty"`
}

// Validate will run validation rules against the trimmed values
func (r ProfileUpdateRequest) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.FullName, fullNameLength),
		)
	}, "invalid profile payload"); verr != nil {
		return verr.WithTextCode(TextCodeValidation)
	}
	return nil
}

// HasInstructorFields reports whether the request touches the instructor
// profile.
func (r ProfileUpdateRequest) HasInstructorFields() bool {
	return strings.TrimSpace(r.Qualification) != "" ||
		strings.TrimSpace(r.Experience) != "" ||
		strings.TrimSpace(r.Office) != "" ||
		strings.TrimSpace(r.Bio) != "" ||
		r.Specializations != nil
}

// Patch converts the request into a store patch. current is the stored
// instructor profile the instructor fields are merged into.
func (r ProfileUpdateRequest) Patch(current *InstructorProfile) AccountPatch {
	var p AccountPatch
	if v := strings.TrimSpace(r.FullName); v != "" {
		p.FullName = &v
	}
	if v := strings.TrimSpace(r.Department); v != "" {
		p.Department = &v
	}
	if v := strings.TrimSpace(r.AcademicYear); v != "" {
		p.AcademicYear = &v
	}
	if r.HasInstructorFields() {
		p.Instructor = r.mergeInstructor(current)
	}
	return p
}

func (r ProfileUpdateRequest) mergeInstructor(current *InstructorProfile) *InstructorProfile {
	var out InstructorProfile
	if current != nil {
		out = *current
		out.Specializations = append([]string(nil), current.Specializations...)
	}
	if v := strings.TrimSpace(r.Qualification); v != "" {
		out.Qualification = v
	}
	if v := strings.TrimSpace(r.Experience); v != "" {
		out.Experience = v
	}
	if v := strings.TrimSpace(r.Office); v != "" {
		out.Office = v
	}
	if v := strings.TrimSpace(r.Bio); v != "" {
		out.Bio = v
	}
	if r.Specializations != nil {
		specs := make([]string, 0, len(r.Specializations))
		for _, s := range r.Specializations {
			if s = strings.TrimSpace(s); s != "" {
				specs = append(specs, s)
			}
		}
		out.Specializations = specs
	}
	return &out
}

// instructorOnly is returned when a non instructor sends instructor fields.
func instructorOnly() error {
	verr := goerrors.ValidateWithOzzo(func() error {
		return validation.Errors{
			"instructor": validation.NewError("validation_instructor_only", "instructor fields require an instructor account"),
		}
	}, "invalid profile payload")
	return verr.WithTextCode(TextCodeValidation)
}

// ChangePasswordRequest replaces the password of an authenticated account.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.CurrentPassword, validation.Required.Error("current password is required")),
			validation.Field(&r.NewPassword, passwordRules("new password is required")...),
		)
	}, "invalid change password payload"); verr != nil {
		return verr.WithTextCode(TextCodeValidation)
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail checks a single email value.
func validateEmail(email string) error {
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.Errors{
			"email": validation.Validate(email,
				validation.Required.Error("email is required"),
				is.EmailFormat.Error("invalid email address"),
			),
		}.Filter()
	}, "invalid email"); verr != nil {
		return verr.WithTextCode(TextCodeValidation)
	}
	return nil
}
