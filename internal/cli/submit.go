package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abrezinsky/consensus/internal/client"
	"github.com/abrezinsky/consensus/internal/errors"
)

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(opts *RootOptions) *cobra.Command {
	var caption string

	cmd := &cobra.Command{
		Use:   "submit <category-id> <photo>",
		Short: "Enter a photo in a competition",
		Long: `Enter a photo in a competition that is taking submissions. Each
person gets one entry per category.`,
		Example: `  consensus submit 3f2a... sunset.jpg --caption "Golden hour at the pier"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			if _, err := env.requireSession(opts.Now()); err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			cat, err := env.api.GetCategory(ctx, args[0])
			if err != nil {
				return fmt.Errorf("loading category: %w", err)
			}
			if client.RouteFor(cat) != client.RouteSubmit {
				return errors.Validationf("%s is not taking entries (%s)", cat.Name, client.StatusLabel(cat))
			}

			path := args[1]
			flow := client.NewSubmitFlow(env.api, cat.ID, readable(path))
			img, err := readImage(path)
			if err != nil && !os.IsPermission(err) {
				return err
			}
			if err := flow.Pick(ctx, img); err != nil {
				if stderrors.Is(err, client.ErrPermissionDenied) {
					return fmt.Errorf("cannot read %s: %w", path, err)
				}
				return err
			}
			flow.SetCaption(caption)

			fmt.Fprintf(out, "Uploading %s (%s) to %s %s\n", img.Filename, humanize.Bytes(uint64(len(img.Data))), icon(cat), cat.Name)
			if flow.Caption() != "" {
				fmt.Fprintf(out, "Caption (%s): %s\n", flow.CaptionCounter(), flow.Caption())
			}
			sub, err := flow.Submit(ctx)
			if err != nil {
				return err
			}
			env.log.Debug("Entry submitted", "id", sub.ID, "status", sub.Status)
			fmt.Fprintln(out, client.SubmittedMessage)
			return nil
		},
	}

	cmd.Flags().StringVarP(&caption, "caption", "c", "", fmt.Sprintf("caption, up to %d characters", client.MaxCaptionLength))

	return cmd
}

// readable grants access to path when the current user can open it
func readable(path string) client.PermissionFunc {
	return func(context.Context) (bool, error) {
		f, err := os.Open(path)
		if os.IsPermission(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		f.Close()
		return true, nil
	}
}

// readImage loads a photo and sniffs its content type
func readImage(path string) (client.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return client.Image{}, err
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return client.Image{}, errors.Validationf("%s is not an image (%s)", filepath.Base(path), contentType)
	}
	return client.Image{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}
