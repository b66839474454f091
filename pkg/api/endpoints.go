package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rubiojr/edstream/pkg/log"
	"github.com/rubiojr/edstream/pkg/models"
)

// UserInfo is the response of /api/user.
type UserInfo struct {
	User    models.User
	Courses []models.Enrollment
}

// ThreadView is a thread together with the course users it references.
type ThreadView struct {
	Thread models.Thread
	Users  []models.CourseUser
}

// ThreadList is a page of course threads.
type ThreadList struct {
	Threads []models.Thread
	Users   []models.CourseUser
}

// ListOptions controls thread listing.
type ListOptions struct {
	Limit  int
	Offset int
	// Sort is "new", "top", "active" or "unanswered".
	Sort string
}

// GetUser fetches the authenticated user and the courses they are enrolled in.
func (c *Client) GetUser(ctx context.Context) (*UserInfo, error) {
	var res map[string]any
	if err := c.Get(ctx, "/api/user", &res); err != nil {
		return nil, err
	}

	info := &UserInfo{}
	if u, ok := res["user"].(map[string]any); ok {
		info.User = models.UserFromMap(u)
	}
	for _, m := range mapsOf(res["courses"]) {
		info.Courses = append(info.Courses, models.EnrollmentFromMap(m))
	}
	return info, nil
}

// GetCourse looks a course up among the user's enrollments.
func (c *Client) GetCourse(ctx context.Context, courseID int64) (models.Course, error) {
	info, err := c.GetUser(ctx)
	if err != nil {
		return models.Course{}, err
	}
	for _, e := range info.Courses {
		if e.Course.ID == courseID {
			return e.Course, nil
		}
	}
	return models.Course{}, fmt.Errorf("%w: course %d not found among enrolled courses", ErrRequest, courseID)
}

// GetThread fetches a thread with its comments.
func (c *Client) GetThread(ctx context.Context, threadID int64) (*ThreadView, error) {
	var res map[string]any
	if err := c.Get(ctx, fmt.Sprintf("/api/threads/%d?view=1", threadID), &res); err != nil {
		return nil, err
	}

	thread, ok := res["thread"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: thread %d: response has no thread object", ErrRequest, threadID)
	}
	return &ThreadView{
		Thread: models.ThreadFromMap(thread),
		Users:  usersOf(res["users"]),
	}, nil
}

// ListThreads fetches a page of threads for a course.
func (c *Client) ListThreads(ctx context.Context, courseID int64, opts ListOptions) (*ThreadList, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	path := fmt.Sprintf("/api/courses/%d/threads", courseID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var res map[string]any
	if err := c.Get(ctx, path, &res); err != nil {
		return nil, err
	}

	list := &ThreadList{Users: usersOf(res["users"])}
	for _, m := range mapsOf(res["threads"]) {
		list.Threads = append(list.Threads, models.ThreadFromMap(m))
	}
	return list, nil
}

// RenewToken obtains a fresh stream token.
func (c *Client) RenewToken(ctx context.Context) (string, error) {
	var res map[string]any
	if err := c.Post(ctx, "/api/renew_token", nil, &res); err != nil {
		return "", fmt.Errorf("renewing stream token: %w", err)
	}
	token, _ := res["token"].(string)
	if token == "" {
		return "", fmt.Errorf("renewing stream token: %w: response has no token", ErrRequest)
	}
	log.ForService("api").Infof("Token renewed successfully.")
	return token, nil
}

func mapsOf(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func usersOf(v any) []models.CourseUser {
	maps := mapsOf(v)
	if len(maps) == 0 {
		return nil
	}
	users := make([]models.CourseUser, len(maps))
	for i, m := range maps {
		users[i] = models.CourseUserFromMap(m)
	}
	return users
}
