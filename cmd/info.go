package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xvierd/flow-reader/internal/adapters/library"
	"github.com/xvierd/flow-reader/internal/adapters/pdf"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <file.pdf>",
	Short: "Show document details",
	Long:  `Validate a PDF the same way a reading session would and print its page count.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		doc, err := library.ReadDocument(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		data, err := doc.Bytes()
		if err != nil {
			return err
		}
		size := len(data)

		handle, err := pdf.NewOpener(app.config.Viewer.BaseWidth).Open(ctx, doc)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", doc.Name, err)
		}
		defer handle.Close()

		if jsonOutput {
			return outputInfoJSON(cmd, doc.Name, doc.MediaType, size, handle.PageCount())
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "📄 %s\n", doc.Name)
		fmt.Fprintf(out, "   Type:  %s\n", doc.MediaType)
		fmt.Fprintf(out, "   Size:  %d bytes\n", size)
		fmt.Fprintf(out, "   Pages: %d\n", handle.PageCount())
		return nil
	},
}

// outputInfoJSON outputs the document details in JSON format
func outputInfoJSON(cmd *cobra.Command, name, mediaType string, size, pages int) error {
	result := map[string]interface{}{
		"name":       name,
		"media_type": mediaType,
		"size":       size,
		"pages":      pages,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
