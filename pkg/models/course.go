package models

import "fmt"

// Course is an Ed course. Status is "active" or "archived".
type Course struct {
	ID               int64
	RealmID          int64
	Code             string
	Name             string
	Year             string
	Session          string
	Status           string
	Features         map[string]any
	Settings         map[string]any
	CreatedAt        string
	IsLabRegexActive bool

	Raw map[string]any
}

// CourseFromMap maps a decoded JSON object onto a Course.
func CourseFromMap(m map[string]any) Course {
	return Course{
		ID:               getInt(m, "id"),
		RealmID:          getInt(m, "realm_id"),
		Code:             getString(m, "code"),
		Name:             getString(m, "name"),
		Year:             getString(m, "year"),
		Session:          getString(m, "session"),
		Status:           getString(m, "status"),
		Features:         getMap(m, "features"),
		Settings:         getMap(m, "settings"),
		CreatedAt:        getString(m, "created_at"),
		IsLabRegexActive: getBool(m, "is_lab_regex_active"),
		Raw:              m,
	}
}

func (c Course) String() string {
	return fmt.Sprintf("<Course code=%s id=%d>", c.Code, c.ID)
}

// Enrollment pairs a course with the current user's role in it, as returned
// by /api/user.
type Enrollment struct {
	Course Course
	Role   string
}

// EnrollmentFromMap reads {"course": {...}, "role": {"role": "..."}}.
func EnrollmentFromMap(m map[string]any) Enrollment {
	e := Enrollment{Course: CourseFromMap(getMap(m, "course"))}
	if role := getMap(m, "role"); role != nil {
		e.Role = getString(role, "role")
	} else {
		e.Role = getString(m, "role")
	}
	return e
}
