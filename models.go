package auth

import (
	"time"

	"github.com/google/uuid"
)

// HOCProfile holds the contact details required for a Head-of-Course request.
type HOCProfile struct {
	Phone     string `json:"phone,omitempty"`
	StudentID string `json:"studentId,omitempty"`
}

// InstructorProfile holds the optional instructor attributes.
type InstructorProfile struct {
	Qualification   string   `json:"qualification,omitempty"`
	Experience      string   `json:"experience,omitempty"`
	Office          string   `json:"office,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
	Bio             string   `json:"bio,omitempty"`
}

// Account is a registered identity
type Account struct {
	ID           uuid.UUID          `json:"id"`
	Email        string             `json:"email"`
	PasswordHash string             `json:"-"`
	FullName     string             `json:"fullName"`
	Department   string             `json:"department"`
	AcademicYear string             `json:"academicYear"`
	State        AccountState       `json:"state"`
	HOC          *HOCProfile        `json:"hoc,omitempty"`
	Instructor   *InstructorProfile `json:"instructor,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// Role is the stored role derived from the account state.
func (a *Account) Role() Role {
	return a.State.Role()
}

// IsHOC reports whether the account holds an approved HOC role.
func (a *Account) IsHOC() bool {
	return a.State == StateHOC
}

// IsHOCPending reports whether the account awaits HOC approval.
func (a *Account) IsHOCPending() bool {
	return a.State == StatePendingHOC
}

// IsInstructor reports whether the account is an instructor.
func (a *Account) IsInstructor() bool {
	return a.State == StateInstructor
}

// View returns the sanitized projection of the account.
func (a *Account) View() AccountView {
	if a == nil {
		return AccountView{}
	}

	v := AccountView{
		ID:           a.ID.String(),
		Email:        a.Email,
		FullName:     a.FullName,
		Department:   a.Department,
		AcademicYear: a.AcademicYear,
		Role:         a.Role(),
		IsHOC:        a.IsHOC(),
		IsHOCPending: a.IsHOCPending(),
		CreatedAt:    a.CreatedAt,
	}

	if a.HOC != nil {
		v.Phone = a.HOC.Phone
		v.StudentID = a.HOC.StudentID
	}

	if a.Instructor != nil {
		in := *a.Instructor
		in.Specializations = append([]string(nil), a.Instructor.Specializations...)
		v.Instructor = &in
	}

	return v
}

// AccountView is the projection exposed outside the store. It never carries
// the password hash.
type AccountView struct {
	ID           string             `json:"id"`
	Email        string             `json:"email"`
	FullName     string             `json:"fullName"`
	Department   string             `json:"department"`
	AcademicYear string             `json:"academicYear"`
	Role         Role               `json:"role"`
	IsHOC        bool               `json:"isHOC"`
	IsHOCPending bool               `json:"isHOCPending"`
	Phone        string             `json:"phone,omitempty"`
	StudentID    string             `json:"studentId,omitempty"`
	Instructor   *InstructorProfile `json:"instructor,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// AccountPatch is a partial update of profile fields. Nil fields are left
// untouched. Activation state is changed only through CompareAndSwapState.
type AccountPatch struct {
	FullName     *string
	Department   *string
	AcademicYear *string
	PasswordHash *string
	HOC          *HOCProfile
	Instructor   *InstructorProfile
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.FullName == nil &&
		p.Department == nil &&
		p.AcademicYear == nil &&
		p.PasswordHash == nil &&
		p.HOC == nil &&
		p.Instructor == nil
}

// Apply merges the patch into a copy of account.
func (p AccountPatch) Apply(account *Account) *Account {
	out := *account
	if p.FullName != nil {
		out.FullName = *p.FullName
	}
	if p.Department != nil {
		out.Department = *p.Department
	}
	if p.AcademicYear != nil {
		out.AcademicYear = *p.AcademicYear
	}
	if p.PasswordHash != nil {
		out.PasswordHash = *p.PasswordHash
	}
	if p.HOC != nil {
		hoc := *p.HOC
		out.HOC = &hoc
	}
	if p.Instructor != nil {
		in := *p.Instructor
		in.Specializations = append([]string(nil), p.Instructor.Specializations...)
		out.Instructor = &in
	}
	return &out
}

// ToViews projects a slice of accounts.
func ToViews(accounts []*Account) []AccountView {
	out := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		if a == nil {
			continue
		}
		out = append(out, a.View())
	}
	return out
}
