package markers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/oshokin/marker-alerts/internal/config"
	"github.com/oshokin/marker-alerts/internal/domain/marker"
	"github.com/oshokin/marker-alerts/internal/logger"
	repository "github.com/oshokin/marker-alerts/internal/repository/marker"
)

// Options selects the marker database.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// DatabaseFile overrides the marker database from the settings.
	DatabaseFile string
}

// Patch describes a title or description change.
// A nil field is kept; a pointer to "" clears it.
type Patch struct {
	// Title is the new title.
	Title *string
	// Description is the new description.
	Description *string
}

// Add stores a marker at location and prints its id.
func Add(ctx context.Context, opts *Options, location marker.Coordinate, patch Patch, out io.Writer) error {
	return withStore(ctx, opts, func(store *repository.SQLiteStore) error {
		created, err := store.CreateMarker(ctx, location)
		if err != nil {
			return err
		}

		if patch.Title != nil || patch.Description != nil {
			if _, err = store.UpdateMarker(ctx, created.ID, emptyToNil(patch.Title), emptyToNil(patch.Description)); err != nil {
				return err
			}
		}

		logger.InfoKV(ctx, "Marker added", "marker_id", created.ID, "location", location.String())

		_, err = fmt.Fprintln(out, created.ID)

		return err
	})
}

// List prints every marker as a table.
func List(ctx context.Context, opts *Options, out io.Writer) error {
	return withStore(ctx, opts, func(store *repository.SQLiteStore) error {
		all, err := store.QueryMarkers(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tLATITUDE\tLONGITUDE\tTITLE\tDESCRIPTION\tUPDATED")

		for _, m := range all {
			_, _ = fmt.Fprintf(w, "%d\t%.6f\t%.6f\t%s\t%s\t%s\n",
				m.ID,
				m.Coordinate.Latitude,
				m.Coordinate.Longitude,
				valueOrDash(m.Title),
				valueOrDash(m.Description),
				m.UpdatedAt.Format(time.RFC3339),
			)
		}

		return w.Flush()
	})
}

// Update applies patch to the marker with id.
func Update(ctx context.Context, opts *Options, id int64, patch Patch) error {
	return withStore(ctx, opts, func(store *repository.SQLiteStore) error {
		current, err := store.QueryMarkerByID(ctx, id)
		if err != nil {
			return err
		}

		title, description := current.Title, current.Description
		if patch.Title != nil {
			title = emptyToNil(patch.Title)
		}

		if patch.Description != nil {
			description = emptyToNil(patch.Description)
		}

		updated, err := store.UpdateMarker(ctx, id, title, description)
		if err != nil {
			return err
		}

		if !updated {
			return fmt.Errorf("marker %d: %w", id, repository.ErrNotFound)
		}

		logger.InfoKV(ctx, "Marker updated", "marker_id", id)

		return nil
	})
}

// Delete removes the marker with id. A running daemon clears its
// notification on the next position update.
func Delete(ctx context.Context, opts *Options, id int64) error {
	return withStore(ctx, opts, func(store *repository.SQLiteStore) error {
		deleted, err := store.DeleteMarker(ctx, id)
		if err != nil {
			return err
		}

		if !deleted {
			return fmt.Errorf("marker %d: %w", id, repository.ErrNotFound)
		}

		logger.InfoKV(ctx, "Marker deleted", "marker_id", id)

		return nil
	})
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, opts *Options, fn func(*repository.SQLiteStore) error) (err error) {
	path, err := databasePath(opts)
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open marker store: %w", err)
	}

	defer func() {
		err = errors.Join(err, store.Close())
	}()

	return fn(store)
}

// databasePath prefers the explicit file, then the settings file, then the default.
func databasePath(opts *Options) (string, error) {
	if opts.DatabaseFile != "" {
		return opts.DatabaseFile, nil
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}

	return settings.DatabaseFile, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}

	return s
}

func valueOrDash(s *string) string {
	if s == nil {
		return "-"
	}

	return *s
}
