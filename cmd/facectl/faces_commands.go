package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facecam/internal/audit"
	"github.com/saturnino-fabrica-de-software/facecam/internal/facedb"
	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
)

const stampLayout = "2006-01-02 15:04:05"

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered reference images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No faces registered in %s\n", store.Root())
				return nil
			}

			rows := make([][]string, 0, len(entries))
			identities := make(map[string]struct{})
			for _, e := range entries {
				identities[e.Name] = struct{}{}
				rows = append(rows, []string{
					e.Name,
					e.Filename,
					e.CapturedAt.Local().Format(stampLayout),
					strconv.FormatInt(e.Size, 10),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "File", "Captured", "Bytes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "%d images, %d identities\n", len(entries), len(identities))
			return nil
		},
	}
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "register <name> <image>",
		Short: "Add an image file as a reference for name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			if !facedb.AllowedFile(path) {
				return fmt.Errorf("%s: %w", path, facedb.ErrExtensionDenied)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if _, err := imaging.Decode(data); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			return ctx.withLockedStore(func(store *facedb.Store) error {
				entry, err := store.Save(cmd.Context(), name, filepath.Base(path), data)
				ctx.record(cmd.Context(), audit.EventFaceUploaded, name, entry.Filename, err)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", entry.Name, entry.Path)
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name> <filename>",
		Short: "Remove one reference image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedStore(func(store *facedb.Store) error {
				err := store.Delete(cmd.Context(), args[0], args[1])
				ctx.record(cmd.Context(), audit.EventFaceDeleted, args[0], args[1], err)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", args[0], args[1])
				return nil
			})
		},
	}
}
