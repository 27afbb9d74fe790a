package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/recipelint/internal/diagram"
	"github.com/rendis/recipelint/internal/recipe"
	"github.com/rendis/recipelint/internal/validation"
)

// Outline formats.
const (
	outlineText    = "text"
	outlineMermaid = "mermaid"
	outlinePNG     = "png"
	outlineSVG     = "svg"
)

func newOutlineCommand(a *app) *cobra.Command {
	var (
		format   string
		output   string
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "outline <recipe.json>",
		Short: "Show the numbered lines of a recipe",
		Long: `Print a recipe as a tree of numbered lines, the numbering used in
validation messages and data pill references. With --validate each line
is annotated with its error and warning counts.

Formats: text (default), mermaid, png, svg. Images are written to --output
or to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(args[0])
			if err != nil {
				return failure("reading recipe", err)
			}
			doc, err := validation.DecodeRecipe(data)
			if err != nil {
				return failure("decoding recipe", err)
			}

			tree := recipe.Walk(doc)
			title := args[0]
			if name, ok := doc["name"].(string); ok && name != "" {
				title = name
			}

			model := diagram.Build(title, tree, nil)
			if validate {
				ctx := cmd.Context()
				provider, closeStore, err := a.openMetadata(ctx, a.cfg)
				if err != nil {
					return err
				}
				defer closeStore()
				v, err := validation.NewRecipeValidator(validation.Options{Metadata: provider, Rules: a.cfg.Rules, Logger: a.logger})
				if err != nil {
					return failure("compiling rules", err)
				}
				model = diagram.Build(title, tree, v.Validate(ctx, doc))
			}

			out, err := renderOutline(cmd.Context(), model, format)
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, out, 0o644); err != nil {
					return failure("writing outline", err)
				}
				return nil
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", outlineText, "outline format: text, mermaid, png or svg")
	f.StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	f.BoolVar(&validate, "validate", false, "annotate lines with validation findings")
	return cmd
}

func renderOutline(ctx context.Context, model *diagram.DiagramModel, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case outlineText:
		return []byte(diagram.RenderASCII(model)), nil
	case outlineMermaid:
		return []byte(diagram.RenderMermaid(model)), nil
	case outlinePNG, outlineSVG:
		imgFormat := diagram.ImagePNG
		if strings.ToLower(format) == outlineSVG {
			imgFormat = diagram.ImageSVG
		}
		img, err := diagram.RenderImage(ctx, model, imgFormat)
		if err != nil {
			return nil, failure("rendering outline", err)
		}
		return img, nil
	default:
		return nil, failure(fmt.Sprintf("unknown outline format %q (want text, mermaid, png or svg)", format), nil)
	}
}
