package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facecam/internal/recognizer"
	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var noDetect bool

	cmd := &cobra.Command{
		Use:   "identify <image>",
		Short: "Recognise the faces in an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			img, err := imaging.Decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			stack, err := ctx.recognition(cmd.Context(), noDetect)
			if err != nil {
				return err
			}

			regions := []image.Rectangle{img.Bounds()}
			if stack.detector != nil {
				faces, err := stack.detector.Detect(cmd.Context(), img)
				if err != nil {
					return fmt.Errorf("detect faces: %w", err)
				}
				if len(faces) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No faces detected")
					return nil
				}
				regions = regions[:0]
				for _, f := range faces {
					regions = append(regions, f.Box)
				}
			}

			rows := make([][]string, 0, len(regions))
			for i, box := range regions {
				crop, err := imaging.Crop(img, box)
				if err != nil {
					rows = append(rows, []string{fmt.Sprint(i + 1), box.String(), "-", "", "", err.Error()})
					continue
				}
				rows = append(rows, identifyRow(cmd.Context(), stack.recognizer, i+1, box, crop))
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Box", "Identity", "Score", "Confidence", "Nearest"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noDetect, "no-detect", false, "Treat the whole image as one face")
	return cmd
}

func identifyRow(ctx context.Context, rec *recognizer.Recognizer, n int, box image.Rectangle, crop image.Image) []string {
	row := []string{fmt.Sprint(n), box.String()}

	match, err := rec.Identify(ctx, crop)
	switch {
	case errors.Is(err, resolver.ErrDescriptorUnavailable):
		return append(row, "Unknown", "", "", "no descriptor")
	case err != nil:
		return append(row, "Error", "", "", err.Error())
	}

	identity := "Unknown"
	if match.Matched {
		identity = match.Label
	}
	return append(row,
		identity,
		fmt.Sprintf("%.4f", match.Score),
		fmt.Sprintf("%.1f%%", match.Confidence*100),
		match.Nearest,
	)
}
