package models

import "fmt"

// Comment is a comment or answer on a thread. Replies are nested in Comments.
type Comment struct {
	ID          int64
	UserID      int64
	CourseID    int64
	ThreadID    int64
	OriginalID  *int64
	ParentID    *int64
	EditorID    *int64
	Number      int64
	Type        string
	Kind        string
	Content     string
	Document    string
	FlagCount   int64
	VoteCount   int64
	IsEndorsed  bool
	IsAnonymous bool
	IsPrivate   bool
	IsResolved  bool
	CreatedAt   string
	UpdatedAt   *string
	DeletedAt   *string
	AnonymousID int64
	Vote        int64
	Comments    []Comment
	User        *CourseUser

	// Raw is the payload the comment was built from.
	Raw map[string]any
}

// CommentFromMap maps a decoded JSON object onto a Comment field by field.
func CommentFromMap(m map[string]any) Comment {
	c := Comment{
		ID:          getInt(m, "id"),
		UserID:      getInt(m, "user_id"),
		CourseID:    getInt(m, "course_id"),
		ThreadID:    getInt(m, "thread_id"),
		OriginalID:  getIntPtr(m, "original_id"),
		ParentID:    getIntPtr(m, "parent_id"),
		EditorID:    getIntPtr(m, "editor_id"),
		Number:      getInt(m, "number"),
		Type:        getString(m, "type"),
		Kind:        getString(m, "kind"),
		Content:     getString(m, "content"),
		Document:    getString(m, "document"),
		FlagCount:   getInt(m, "flag_count"),
		VoteCount:   getInt(m, "vote_count"),
		IsEndorsed:  getBool(m, "is_endorsed"),
		IsAnonymous: getBool(m, "is_anonymous"),
		IsPrivate:   getBool(m, "is_private"),
		IsResolved:  getBool(m, "is_resolved"),
		CreatedAt:   getString(m, "created_at"),
		UpdatedAt:   getStringPtr(m, "updated_at"),
		DeletedAt:   getStringPtr(m, "deleted_at"),
		AnonymousID: getInt(m, "anonymous_id"),
		Vote:        getInt(m, "vote"),
		Comments:    commentsFromMaps(getMaps(m, "comments")),
		Raw:         m,
	}
	if u := getMap(m, "user"); u != nil {
		cu := CourseUserFromMap(u)
		c.User = &cu
	}
	return c
}

func commentsFromMaps(ms []map[string]any) []Comment {
	if len(ms) == 0 {
		return nil
	}
	out := make([]Comment, len(ms))
	for i, m := range ms {
		out[i] = CommentFromMap(m)
	}
	return out
}

func (c Comment) String() string {
	return fmt.Sprintf("<Comment id=%d>", c.ID)
}
