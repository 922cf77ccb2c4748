package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshokin/marker-alerts/internal/service/markers"
)

// errNothingToUpdate is returned when update gets neither --title nor --description.
var errNothingToUpdate = errors.New("nothing to update: pass --title or --description")

var (
	// markerTitle is the --title value.
	markerTitle string
	// markerDescription is the --description value.
	markerDescription string

	// markersCmd groups marker management.
	markersCmd = &cobra.Command{
		Use:   "markers",
		Short: "Manage saved map markers.",
	}

	markersAddCmd = &cobra.Command{
		Use:   "add <lat,lon>",
		Short: "Save a marker and print its id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, err := parseCoordinate(args[0])
			if err != nil {
				return err
			}

			return markers.Add(context.Background(), markerOptions(), location, markerPatch(cmd), cmd.OutOrStdout())
		},
	}

	markersListCmd = &cobra.Command{
		Use:   "list",
		Short: "List saved markers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return markers.List(context.Background(), markerOptions(), cmd.OutOrStdout())
		},
	}

	markersUpdateCmd = &cobra.Command{
		Use:   "update <id>",
		Short: "Change the title or description of a marker.",
		Long:  "Change the title or description of a marker. Pass an empty value to clear a field.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			patch := markerPatch(cmd)
			if patch.Title == nil && patch.Description == nil {
				return errNothingToUpdate
			}

			return markers.Update(context.Background(), markerOptions(), id, patch)
		},
	}

	markersDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a marker. A running daemon removes its notification.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return markers.Delete(context.Background(), markerOptions(), id)
		},
	}
)

func markerOptions() *markers.Options {
	return &markers.Options{
		ConfigPath:   configPath,
		DatabaseFile: databaseFile,
	}
}

// markerPatch includes only the flags set on the command line.
func markerPatch(cmd *cobra.Command) markers.Patch {
	var patch markers.Patch

	if cmd.Flags().Changed("title") {
		patch.Title = &markerTitle
	}

	if cmd.Flags().Changed("description") {
		patch.Description = &markerDescription
	}

	return patch
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid marker id %q", s)
	}

	return id, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, c := range []*cobra.Command{markersAddCmd, markersUpdateCmd} {
		c.Flags().StringVarP(&markerTitle, "title", "t", "", "marker title")
		c.Flags().StringVarP(&markerDescription, "description", "d", "", "marker description")
	}

	markersCmd.AddCommand(markersAddCmd, markersListCmd, markersUpdateCmd, markersDeleteCmd)
}
