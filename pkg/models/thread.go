package models

import "fmt"

// ThreadType is the kind of a thread when posting to Ed.
type ThreadType string

const (
	ThreadPost         ThreadType = "post"
	ThreadQuestion     ThreadType = "question"
	ThreadAnnouncement ThreadType = "announcement"
)

// ParseThreadType converts the wire value into a ThreadType.
func ParseThreadType(s string) (ThreadType, error) {
	switch t := ThreadType(s); t {
	case ThreadPost, ThreadQuestion, ThreadAnnouncement:
		return t, nil
	}
	return "", fmt.Errorf("invalid thread type: %q", s)
}

// Thread is a discussion thread. Update and delete notifications carry only a
// subset of the fields; anything absent from the source payload is left at its
// zero value (nil for the nullable fields).
type Thread struct {
	ID                int64
	UserID            int64
	CourseID          int64
	OriginalID        *int64
	EditorID          *int64
	AcceptedID        *int64
	DuplicateID       *int64
	Number            int64
	Type              ThreadType
	Title             string
	Content           string
	Document          string
	Category          string
	Subcategory       string
	Subsubcategory    string
	FlagCount         int64
	StarCount         int64
	ViewCount         int64
	UniqueViewCount   int64
	VoteCount         int64
	ReplyCount        int64
	UnresolvedCount   int64
	IsLocked          bool
	IsPinned          bool
	IsPrivate         bool
	IsEndorsed        bool
	IsAnswered        bool
	IsStudentAnswered bool
	IsStaffAnswered   bool
	IsArchived        bool
	IsAnonymous       bool
	IsMegathread      bool
	AnonymousComments bool
	ApprovedStatus    string
	CreatedAt         string
	UpdatedAt         *string
	DeletedAt         *string
	PinnedAt          *string
	AnonymousID       int64
	Vote              int64
	IsSeen            bool
	IsStarred         bool
	IsWatched         bool
	GlancedAt         *string
	NewReplyCount     int64
	DuplicateTitle    *string
	Answers           []Comment
	Comments          []Comment
	User              *CourseUser

	// Raw is the payload the thread was built from.
	Raw map[string]any
}

// ThreadFromMap maps a decoded JSON object onto a Thread field by field.
// Unknown thread types are kept verbatim.
func ThreadFromMap(m map[string]any) Thread {
	t := Thread{
		ID:                getInt(m, "id"),
		UserID:            getInt(m, "user_id"),
		CourseID:          getInt(m, "course_id"),
		OriginalID:        getIntPtr(m, "original_id"),
		EditorID:          getIntPtr(m, "editor_id"),
		AcceptedID:        getIntPtr(m, "accepted_id"),
		DuplicateID:       getIntPtr(m, "duplicate_id"),
		Number:            getInt(m, "number"),
		Type:              ThreadType(getString(m, "type")),
		Title:             getString(m, "title"),
		Content:           getString(m, "content"),
		Document:          getString(m, "document"),
		Category:          getString(m, "category"),
		Subcategory:       getString(m, "subcategory"),
		Subsubcategory:    getString(m, "subsubcategory"),
		FlagCount:         getInt(m, "flag_count"),
		StarCount:         getInt(m, "star_count"),
		ViewCount:         getInt(m, "view_count"),
		UniqueViewCount:   getInt(m, "unique_view_count"),
		VoteCount:         getInt(m, "vote_count"),
		ReplyCount:        getInt(m, "reply_count"),
		UnresolvedCount:   getInt(m, "unresolved_count"),
		IsLocked:          getBool(m, "is_locked"),
		IsPinned:          getBool(m, "is_pinned"),
		IsPrivate:         getBool(m, "is_private"),
		IsEndorsed:        getBool(m, "is_endorsed"),
		IsAnswered:        getBool(m, "is_answered"),
		IsStudentAnswered: getBool(m, "is_student_answered"),
		IsStaffAnswered:   getBool(m, "is_staff_answered"),
		IsArchived:        getBool(m, "is_archived"),
		IsAnonymous:       getBool(m, "is_anonymous"),
		IsMegathread:      getBool(m, "is_megathread"),
		AnonymousComments: getBool(m, "anonymous_comments"),
		ApprovedStatus:    getString(m, "approved_status"),
		CreatedAt:         getString(m, "created_at"),
		UpdatedAt:         getStringPtr(m, "updated_at"),
		DeletedAt:         getStringPtr(m, "deleted_at"),
		PinnedAt:          getStringPtr(m, "pinned_at"),
		AnonymousID:       getInt(m, "anonymous_id"),
		Vote:              getInt(m, "vote"),
		IsSeen:            getBool(m, "is_seen"),
		IsStarred:         getBool(m, "is_starred"),
		IsWatched:         getBool(m, "is_watched"),
		GlancedAt:         getStringPtr(m, "glanced_at"),
		NewReplyCount:     getInt(m, "new_reply_count"),
		DuplicateTitle:    getStringPtr(m, "duplicate_title"),
		Answers:           commentsFromMaps(getMaps(m, "answers")),
		Comments:          commentsFromMaps(getMaps(m, "comments")),
		Raw:               m,
	}
	if u := getMap(m, "user"); u != nil {
		cu := CourseUserFromMap(u)
		t.User = &cu
	}
	return t
}

func (t Thread) String() string {
	return fmt.Sprintf("<Thread id=%d>", t.ID)
}
