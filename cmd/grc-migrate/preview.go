package main

import (
	"fmt"
	"io"

	"github.com/goliatone/go-mdmigrate"
	"github.com/spf13/cobra"
)

func newPreviewCmd() *cobra.Command {
	var renderHTML bool
	cmd := &cobra.Command{
		Use:         "preview",
		Short:       "Convert HTML from stdin to Markdown as the migration would",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			md := mdmigrate.ToMarkdown(string(input))
			out := cmd.OutOrStdout()
			if !renderHTML {
				_, err = fmt.Fprintln(out, md)
				return err
			}
			rendered, err := mdmigrate.RenderHTML([]byte(md))
			if err != nil {
				return err
			}
			_, err = out.Write(rendered)
			return err
		},
	}
	cmd.Flags().BoolVar(&renderHTML, "html", false, "render the Markdown back to HTML")
	return cmd
}
