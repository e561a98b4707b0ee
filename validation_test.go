package auth_test

import (
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/pulseapp/pulse-auth"
)

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var ge *goerrors.Error
	require.True(t, goerrors.As(err, &ge))
	assert.Equal(t, auth.TextCodeValidation, ge.TextCode)
	return ge.ValidationMap()
}

func TestRegistrationRequestNormalize(t *testing.T) {
	req := auth.RegistrationRequest{
		Email:           "  Ada@Example.COM ",
		FullName:        "  Ada Lovelace ",
		Role:            " hoc ",
		Specializations: []string{" a ", " ", "b"},
	}
	req.Normalize()

	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, "Ada Lovelace", req.FullName)
	assert.Equal(t, "HOC", req.Role)
	assert.Equal(t, auth.RoleHOC, req.RequestedRole())
	assert.Equal(t, []string{"a", "b"}, req.Specializations)
}

func TestRegistrationRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*auth.RegistrationRequest)
		field   string
		wantErr bool
	}{
		{name: "valid student", mutate: func(*auth.RegistrationRequest) {}},
		{name: "missing email", mutate: func(r *auth.RegistrationRequest) { r.Email = "" }, field: "email", wantErr: true},
		{name: "bad email", mutate: func(r *auth.RegistrationRequest) { r.Email = "a@" }, field: "email", wantErr: true},
		{name: "short name", mutate: func(r *auth.RegistrationRequest) { r.FullName = "A" }, field: "fullName", wantErr: true},
		{name: "short password", mutate: func(r *auth.RegistrationRequest) { r.Password = "1234567" }, field: "password", wantErr: true},
		{name: "eight char password", mutate: func(r *auth.RegistrationRequest) { r.Password = "12345678" }},
		{
			name:    "password over bcrypt limit",
			mutate:  func(r *auth.RegistrationRequest) { r.Password = strings.Repeat("x", auth.MaxPasswordBytes+1) },
			field:   "password",
			wantErr: true,
		},
		{name: "unknown role", mutate: func(r *auth.RegistrationRequest) { r.Role = "ADMIN" }, field: "role", wantErr: true},
		{name: "missing department", mutate: func(r *auth.RegistrationRequest) { r.Department = "" }, field: "department", wantErr: true},
		{name: "missing year", mutate: func(r *auth.RegistrationRequest) { r.AcademicYear = "" }, field: "academicYear", wantErr: true},
		{
			name:    "hoc without phone",
			mutate:  func(r *auth.RegistrationRequest) { r.Role = "HOC"; r.StudentID = "S1" },
			field:   "phone",
			wantErr: true,
		},
		{
			name:    "hoc without student id",
			mutate:  func(r *auth.RegistrationRequest) { r.Role = "HOC"; r.Phone = "555" },
			field:   "studentId",
			wantErr: true,
		},
		{name: "student ignores hoc fields", mutate: func(r *auth.RegistrationRequest) { r.Phone = "" }},
		{name: "instructor needs no extras", mutate: func(r *auth.RegistrationRequest) { r.Role = "INSTRUCTOR" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := studentRequest("a@x.com")
			tt.mutate(&req)
			req.Normalize()

			err := req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, validationDetails(t, err), tt.field)
		})
	}
}

func TestLoginRequestValidate(t *testing.T) {
	assert.NoError(t, auth.LoginRequest{Email: "a@x.com", Password: "x"}.Validate())

	details := validationDetails(t, auth.LoginRequest{}.Validate())
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestChangePasswordRequestValidate(t *testing.T) {
	assert.NoError(t, auth.ChangePasswordRequest{CurrentPassword: "old", NewPassword: "newpassword"}.Validate())

	details := validationDetails(t, auth.ChangePasswordRequest{NewPassword: "short"}.Validate())
	assert.Contains(t, details, "currentPassword")
	assert.Contains(t, details, "newPassword")
}

func TestProfileUpdateRequestPatch(t *testing.T) {
	patch := auth.ProfileUpdateRequest{FullName: " Ada ", AcademicYear: "  "}.Patch(nil)
	require.NotNil(t, patch.FullName)
	assert.Equal(t, "Ada", *patch.FullName)
	assert.Nil(t, patch.Department)
	assert.Nil(t, patch.AcademicYear)
	assert.Nil(t, patch.PasswordHash)

	assert.Nil(t, patch.Instructor)

	assert.True(t, auth.ProfileUpdateRequest{}.Patch(nil).IsEmpty())
}

func TestProfileUpdateRequestMergesInstructorFields(t *testing.T) {
	current := &auth.InstructorProfile{Qualification: "PhD", Office: "B12", Specializations: []string{"ml"}}

	req := auth.ProfileUpdateRequest{Office: " C3 ", Specializations: []string{" db ", ""}}
	require.True(t, req.HasInstructorFields())

	patch := req.Patch(current)
	require.NotNil(t, patch.Instructor)
	assert.Equal(t, "PhD", patch.Instructor.Qualification)
	assert.Equal(t, "C3", patch.Instructor.Office)
	assert.Equal(t, []string{"db"}, patch.Instructor.Specializations)
	assert.Equal(t, []string{"ml"}, current.Specializations)

	assert.False(t, auth.ProfileUpdateRequest{FullName: "Ada"}.HasInstructorFields())
}

func TestLengthRulesCountCharacters(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*auth.RegistrationRequest)
		field   string
		wantErr bool
	}{
		{name: "five multibyte chars", mutate: func(r *auth.RegistrationRequest) { r.Password = "日本語パス" }, field: "password", wantErr: true},
		{name: "eight multibyte chars", mutate: func(r *auth.RegistrationRequest) { r.Password = "日本語パスワード" }},
		{
			name:    "under 72 chars over 72 bytes",
			mutate:  func(r *auth.RegistrationRequest) { r.Password = strings.Repeat("é", 40) },
			field:   "password",
			wantErr: true,
		},
		{name: "one char name", mutate: func(r *auth.RegistrationRequest) { r.FullName = "é" }, field: "fullName", wantErr: true},
		{name: "two char name", mutate: func(r *auth.RegistrationRequest) { r.FullName = "李华" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := studentRequest("a@x.com")
			tt.mutate(&req)
			req.Normalize()

			err := req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, validationDetails(t, err), tt.field)
		})
	}

	details := validationDetails(t, auth.ChangePasswordRequest{CurrentPassword: "x", NewPassword: "日本語パス"}.Validate())
	assert.Contains(t, details, "newPassword")
}

func TestProfileUpdateRequestValidatesTrimmedName(t *testing.T) {
	details := validationDetails(t, auth.ProfileUpdateRequest{FullName: " a "}.Validate())
	assert.Contains(t, details, "fullName")

	assert.NoError(t, auth.ProfileUpdateRequest{FullName: "   "}.Validate())
	assert.NoError(t, auth.ProfileUpdateRequest{FullName: " Ada "}.Validate())
}
