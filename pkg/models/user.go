package models

import "fmt"

// CourseUser is a user as seen from inside a course (thread authors,
// commenters).
type CourseUser struct {
	ID         int64
	Name       string
	Avatar     string
	Role       string
	CourseRole string
	Tutorials  map[int64]string

	Raw map[string]any
}

// CourseUserFromMap maps a decoded JSON object onto a CourseUser.
func CourseUserFromMap(m map[string]any) CourseUser {
	u := CourseUser{
		ID:         getInt(m, "id"),
		Name:       getString(m, "name"),
		Avatar:     getString(m, "avatar"),
		Role:       getString(m, "role"),
		CourseRole: getString(m, "course_role"),
		Raw:        m,
	}
	if tm := getMap(m, "tutorials"); tm != nil {
		u.Tutorials = make(map[int64]string, len(tm))
		for k := range tm {
			id, ok := toInt(k)
			if !ok {
				continue
			}
			u.Tutorials[id] = getString(tm, k)
		}
	}
	return u
}

func (u CourseUser) String() string {
	return fmt.Sprintf("<CourseUser name=%s id=%d>", u.Name, u.ID)
}

// User is the authenticated account returned by /api/user.
type User struct {
	ID       int64
	Name     string
	Email    string
	Username string
	Avatar   string
	Role     string

	Raw map[string]any
}

// UserFromMap maps a decoded JSON object onto a User.
func UserFromMap(m map[string]any) User {
	return User{
		ID:       getInt(m, "id"),
		Name:     getString(m, "name"),
		Email:    getString(m, "email"),
		Username: getString(m, "username"),
		Avatar:   getString(m, "avatar"),
		Role:     getString(m, "role"),
		Raw:      m,
	}
}
