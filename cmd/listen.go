package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/edstream/pkg/client"
	"github.com/rubiojr/edstream/pkg/config"
	"github.com/rubiojr/edstream/pkg/events"
	"github.com/rubiojr/edstream/pkg/hooks"
	"github.com/rubiojr/edstream/pkg/log"
	"github.com/urfave/cli/v3"
)

// ListenCommand creates the listen command
func ListenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Subscribe to courses and print live events",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "course",
				Usage: "Course ID to subscribe to. Can be used multiple times (defaults to the configured courses)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print events as JSON lines",
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "Do not watch the config file for new courses",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			courses := c.StringSlice("course")
			watch := !c.Bool("no-watch") && len(courses) == 0
			if len(courses) == 0 {
				courses = cfg.Courses
			}
			if len(courses) == 0 {
				return fmt.Errorf("no courses to subscribe to: pass --course or set courses in %s", c.String("config"))
			}
			return listen(ctx, cfg, c.String("config"), courses, c.Bool("json"), watch)
		},
	}
}

func listen(ctx context.Context, cfg *config.Config, configPath string, courses []string, asJSON, watch bool) error {
	cl, cleanup, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	printer := &eventPrinter{out: os.Stdout, json: asJSON, now: time.Now}
	if _, err := cl.AddEventHooks(printer); err != nil {
		return fmt.Errorf("registering printer: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watch {
		go watchConfig(ctx, configPath, cl)
	}

	err = cl.Subscribe(ctx, courses...)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		return nil
	}
	return err
}

// eventPrinter writes every event it receives to out.
type eventPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	json bool
	now  func() time.Time
}

func (p *eventPrinter) Hooks() []hooks.Hook {
	return []hooks.Hook{{Kinds: events.Kinds(), Handler: p.print}}
}

func (p *eventPrinter) print(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json {
		return json.NewEncoder(p.out).Encode(eventRecord(ev))
	}
	_, err := fmt.Fprintln(p.out, renderEvent(ev, p.now()))
	return err
}

// watchConfig subscribes to courses added to the config file while listening.
func watchConfig(ctx context.Context, configPath string, cl *client.Client) {
	l := log.ForService("listen")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.Warnf("failed to create config file watcher: %v", err)
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			l.Warnf("failed to close config file watcher: %v", err)
		}
	}()

	if err := watcher.Add(configPath); err != nil {
		l.Warnf("failed to watch config file %s: %v", configPath, err)
		return
	}
	l.Infof("Watching config file for new courses: %s", configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Editors often save with atomic renames
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
				continue
			}
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					l.Infof("Config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					l.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}

			if err := reloadCourses(configPath, cl); err != nil {
				l.Errorf("Failed to reload configuration: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.Warnf("Config file watcher error: %v", err)
		}
	}
}

// reloadCourses subscribes to any configured course not yet subscribed.
// Removed courses stay subscribed until the next restart.
func reloadCourses(configPath string, cl *client.Client) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	before := len(cl.Subscribed())
	if err := cl.AddCourses(cfg.Courses...); err != nil {
		return err
	}
	if added := len(cl.Subscribed()) - before; added > 0 {
		log.ForService("listen").Infof("Subscribed to %d new course(s) from config", added)
	}
	return nil
}
