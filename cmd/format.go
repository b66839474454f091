package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/edstream/pkg/api"
	"github.com/rubiojr/edstream/pkg/events"
	"github.com/rubiojr/edstream/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	kindStyles = map[events.Kind]lipgloss.Style{
		events.ThreadNew:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		events.ThreadUpdate:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		events.ThreadDelete:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		events.CommentNew:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		events.CommentUpdate: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		events.CommentDelete: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		events.CourseCount:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}

	blockStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

func title(s string) string {
	return cases.Title(language.English).String(s)
}

// threadTypeLabel renders "question" as "Question".
func threadTypeLabel(t models.ThreadType) string {
	if t == "" {
		return "Thread"
	}
	return title(string(t))
}

// eventLabel renders "ThreadNewEvent" as "Thread New".
func eventLabel(k events.Kind) string {
	name := strings.TrimSuffix(string(k), "Event")
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// renderEvent formats a stream event for the terminal.
func renderEvent(ev events.Event, now time.Time) string {
	style, ok := kindStyles[ev.Kind()]
	if !ok {
		style = lipgloss.NewStyle()
	}
	header := style.Render(eventLabel(ev.Kind())) + " " + metaStyle.Render(now.Format("15:04:05"))

	switch e := ev.(type) {
	case events.ThreadNewEvent:
		return header + "\n" + renderThread(e.Thread)
	case events.ThreadUpdateEvent:
		return header + "\n" + renderThread(e.Thread)
	case events.ThreadDeleteEvent:
		return header + " " + fmt.Sprintf("thread %d", e.Thread.ID)
	case events.CommentNewEvent:
		return header + "\n" + renderComment(e.Comment)
	case events.CommentUpdateEvent:
		return header + "\n" + renderComment(e.Comment)
	case events.CommentDeleteEvent:
		return header + " " + fmt.Sprintf("comment %d on thread %d", e.Comment.ID, e.Comment.ThreadID)
	case events.CourseCountEvent:
		return header + " " + fmt.Sprintf("course %d: %d viewing", e.CourseID, e.Count)
	default:
		return header
	}
}

func renderThread(t models.Thread) string {
	var lines []string
	heading := t.Title
	if heading == "" {
		heading = fmt.Sprintf("(thread %d)", t.ID)
	}
	lines = append(lines, titleStyle.Render(fmt.Sprintf("#%d %s", t.Number, heading)))

	meta := []string{threadTypeLabel(t.Type)}
	if t.Category != "" {
		meta = append(meta, t.Category)
	}
	if t.User != nil && t.User.Name != "" {
		meta = append(meta, "by "+t.User.Name)
	}
	if t.CourseID != 0 {
		meta = append(meta, fmt.Sprintf("course %d", t.CourseID))
	}
	meta = append(meta, fmt.Sprintf("%d replies, %d votes", t.ReplyCount, t.VoteCount))
	lines = append(lines, metaStyle.Render(strings.Join(meta, " · ")))

	if body := strings.TrimSpace(t.Document); body != "" {
		lines = append(lines, truncate(body, 400))
	}
	return blockStyle.Render(strings.Join(lines, "\n"))
}

func renderComment(c models.Comment) string {
	meta := []string{title(orDefault(c.Type, "comment"))}
	if c.User != nil && c.User.Name != "" {
		meta = append(meta, "by "+c.User.Name)
	}
	meta = append(meta, fmt.Sprintf("thread %d", c.ThreadID))

	lines := []string{metaStyle.Render(strings.Join(meta, " · "))}
	if body := strings.TrimSpace(c.Document); body != "" {
		lines = append(lines, truncate(body, 400))
	}
	return blockStyle.Render(strings.Join(lines, "\n"))
}

func renderUser(info *api.UserInfo) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(info.User.Name))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("%s · id %d", info.User.Email, info.User.ID)))
	b.WriteString("\n\n")
	if len(info.Courses) == 0 {
		b.WriteString(noDataStyle.Render("Not enrolled in any course."))
		return b.String()
	}
	for _, e := range info.Courses {
		b.WriteString(renderCourseLine(e.Course, e.Role))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCourseLine(c models.Course, role string) string {
	line := fmt.Sprintf("%-8d %-12s %s", c.ID, c.Code, c.Name)
	extra := []string{}
	if role != "" {
		extra = append(extra, title(role))
	}
	if c.Session != "" || c.Year != "" {
		extra = append(extra, strings.TrimSpace(c.Session+" "+c.Year))
	}
	if c.Status != "" && c.Status != "active" {
		extra = append(extra, c.Status)
	}
	if len(extra) > 0 {
		line += " " + metaStyle.Render("("+strings.Join(extra, ", ")+")")
	}
	return line
}

func renderThreadList(list *api.ThreadList) string {
	if len(list.Threads) == 0 {
		return noDataStyle.Render("No threads found.")
	}
	var b strings.Builder
	for _, t := range list.Threads {
		b.WriteString(fmt.Sprintf("%-8d #%-5d %-12s %s\n", t.ID, t.Number, threadTypeLabel(t.Type), truncate(t.Title, 70)))
	}
	return b.String()
}

// eventRecord is the --json form of an event: the kind plus the payload the
// event was built from.
func eventRecord(ev events.Event) map[string]any {
	rec := map[string]any{"kind": string(ev.Kind())}
	switch e := ev.(type) {
	case events.ThreadNewEvent:
		rec["thread"] = e.Thread.Raw
	case events.ThreadUpdateEvent:
		rec["thread"] = e.Thread.Raw
	case events.ThreadDeleteEvent:
		rec["thread_id"] = e.Thread.ID
	case events.CommentNewEvent:
		rec["comment"] = e.Comment.Raw
	case events.CommentUpdateEvent:
		rec["comment"] = e.Comment.Raw
	case events.CommentDeleteEvent:
		rec["comment_id"] = e.Comment.ID
		rec["thread_id"] = e.Comment.ThreadID
	case events.CourseCountEvent:
		rec["course_id"] = e.CourseID
		rec["count"] = e.Count
	}
	return rec
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
