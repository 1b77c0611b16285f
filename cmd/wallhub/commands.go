package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"wallhub/internal/bootstrap"
	"wallhub/internal/models"
	"wallhub/internal/validation"
)

type cli struct {
	rt  *bootstrap.Runtime
	out io.Writer
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch strings.ToLower(strings.TrimSpace(cmd)) {
	case "browse":
		return c.printImages(c.rt.Catalog.Fetch(ctx))
	case "search":
		return c.printImages(c.rt.Catalog.Search(ctx, strings.Join(args, " ")))
	case "upload":
		return c.upload(ctx, args)
	case "delete":
		return c.delete(ctx, args)
	case "mine":
		return c.mine(ctx)
	case "like":
		return c.like(ctx, args)
	case "profile":
		return c.profile(ctx, args)
	default:
		return usage()
	}
}

func (c *cli) printImages(images []models.Image) error {
	if err := c.rt.Catalog.Err(); err != nil {
		fmt.Fprintf(c.out, "warning: %s, showing demo wallpapers\n", models.UserMessage(err))
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSIZE\tTAGS\tADDED")
	for _, img := range images {
		size := "-"
		if img.Width != nil && img.Height != nil {
			size = fmt.Sprintf("%d×%d", *img.Width, *img.Height)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			img.ID, img.Title, size, strings.Join(img.Tags, ","), img.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func (c *cli) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	title := fs.String("title", "", "Wallpaper title")
	description := fs.String("description", "", "Optional description")
	tags := fs.String("tags", "", "Comma-separated tags")
	files, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return errors.New("usage: wallhub upload <file> --title <title> [--description <text>] [--tags a,b]")
	}

	path := files[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	img, err := c.rt.Catalog.Upload(ctx, validation.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:        data,
	}, validation.Metadata{
		Title:       *title,
		Description: *description,
		Tags:        validation.SplitTags(*tags),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "uploaded %s\n%s\n", img.ID, img.ImageURL)
	return nil
}

// parseInterleaved parses flags that may appear before or after positional
// arguments and returns the positionals in order.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func (c *cli) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: wallhub delete <id>")
	}
	if err := c.rt.Catalog.Delete(ctx, models.ParseImageRef(args[0])); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted %s\n", args[0])
	return nil
}

func (c *cli) mine(ctx context.Context) error {
	user := c.rt.Session.User()
	if user == nil {
		return models.NewUnauthorizedError("Not authenticated")
	}
	return c.printImages(c.rt.Catalog.GetUserImages(ctx, user.ID))
}

func (c *cli) like(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: wallhub like <id>")
	}
	likes := c.rt.NewLikeManager(models.ParseImageRef(args[0]))
	likes.Init(ctx)
	if err := likes.Err(); err != nil {
		return err
	}
	if err := likes.Toggle(ctx); err != nil {
		return err
	}

	state := "unliked"
	if likes.Liked() {
		state = "liked"
	}
	fmt.Fprintf(c.out, "%s %s (%d likes)\n", state, args[0], likes.Count())
	return nil
}

func (c *cli) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	var patch models.ProfilePatch
	optional := func(name, usage string, dst **string) {
		fs.Func(name, usage, func(v string) error {
			*dst = &v
			return nil
		})
	}
	optional("username", "New username", &patch.Username)
	optional("full-name", "New full name", &patch.FullName)
	optional("bio", "New bio", &patch.Bio)
	optional("website", "New website", &patch.Website)
	if err := fs.Parse(args); err != nil {
		return err
	}

	profile := c.rt.Session.Profile()
	if !patch.Empty() {
		updated, err := c.rt.Session.UpdateProfile(ctx, patch)
		if err != nil {
			return err
		}
		profile = updated
	}
	if profile == nil {
		return models.NewUnauthorizedError("Not authenticated")
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "username\t%s\n", deref(profile.Username))
	fmt.Fprintf(w, "full name\t%s\n", deref(profile.FullName))
	fmt.Fprintf(w, "bio\t%s\n", deref(profile.Bio))
	fmt.Fprintf(w, "website\t%s\n", deref(profile.Website))
	fmt.Fprintf(w, "uploads\t%d\n", profile.TotalUploads)
	return w.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
