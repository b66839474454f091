package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/edstream/pkg/api"
	"github.com/rubiojr/edstream/pkg/client"
	"github.com/urfave/cli/v3"
)

// CourseCommand creates the course command
func CourseCommand() *cli.Command {
	return &cli.Command{
		Name:      "course",
		Usage:     "Show an enrolled course",
		ArgsUsage: "COURSE_ID",
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := courseArg(c)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			apiClient, _, cleanup, err := newAPI(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			course, err := apiClient.GetCourse(ctx, id)
			if err != nil {
				return err
			}
			fmt.Println(renderCourseLine(course, ""))
			return nil
		},
	}
}

// ThreadCommand creates the thread command
func ThreadCommand() *cli.Command {
	return &cli.Command{
		Name:      "thread",
		Usage:     "Show a thread",
		ArgsUsage: "THREAD_ID",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one THREAD_ID argument")
			}
			var id int64
			if _, err := fmt.Sscanf(c.Args().First(), "%d", &id); err != nil || id <= 0 {
				return fmt.Errorf("invalid thread id %q", c.Args().First())
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			apiClient, _, cleanup, err := newAPI(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			view, err := apiClient.GetThread(ctx, id)
			if err != nil {
				return fmt.Errorf("fetching thread: %w", err)
			}
			fmt.Println(renderThread(view.Thread))
			for _, a := range view.Thread.Answers {
				fmt.Println(renderComment(a))
			}
			for _, cm := range view.Thread.Comments {
				fmt.Println(renderComment(cm))
			}
			return nil
		},
	}
}

// ThreadsCommand creates the threads command
func ThreadsCommand() *cli.Command {
	return &cli.Command{
		Name:      "threads",
		Usage:     "List the threads of a course",
		ArgsUsage: "COURSE_ID",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of threads to list",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of threads to skip",
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort order: new, top, active or unanswered",
				Value: "new",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := courseArg(c)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			apiClient, _, cleanup, err := newAPI(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := apiClient.ListThreads(ctx, id, api.ListOptions{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
				Sort:   c.String("sort"),
			})
			if err != nil {
				return fmt.Errorf("listing threads: %w", err)
			}
			fmt.Print(renderThreadList(list))
			return nil
		},
	}
}

func courseArg(c *cli.Command) (int64, error) {
	if c.Args().Len() != 1 {
		return 0, fmt.Errorf("expected exactly one COURSE_ID argument")
	}
	return client.ParseCourseID(c.Args().First())
}
