package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/jjalkak/go-meme-service/internal/editor"
	"github.com/spf13/cobra"
)

// NewMakeCmd creates the make command.
func NewMakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "make [sentence]",
		Short: "Search a meme for a sentence and save it with a caption",
		Long: `Make searches memes for the sentence, picks one result and draws
the caption on it.

Images that could only be loaded without CORS cannot be exported;
their original address is printed instead.

Examples:
  # Caption the first result with the sentence itself
  jjalkak make 월요일 출근하기 싫다

  # Pick the third result and use custom text
  jjalkak make --pick 3 --text "퇴근 언제 함" --position top 야근`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMakeCmd,
	}

	cmd.Flags().IntP("pick", "p", 1, "Result number to caption")
	cmd.Flags().StringP("text", "t", "", "Caption text (default: the sentence)")
	cmd.Flags().String("position", string(editor.PositionBottom), "Caption position: top, center or bottom")
	cmd.Flags().Int("font-size", editor.DefaultFontSize, "Caption font size")
	cmd.Flags().String("color", editor.DefaultTextColor, "Caption color")
	cmd.Flags().String("stroke", editor.DefaultStrokeColor, "Caption outline color")
	cmd.Flags().StringP("out", "o", defaultOutputPath(), "Output PNG path")
	cmd.Flags().Bool("copy", false, "Copy the PNG to the clipboard instead of writing a file")

	return cmd
}

func defaultOutputPath() string {
	return filepath.Join(xdg.UserDirs.Download, editor.DefaultFilename)
}

func runMakeCmd(cmd *cobra.Command, args []string) error {
	sentence := strings.TrimSpace(strings.Join(args, " "))
	pick, _ := cmd.Flags().GetInt("pick")
	if pick < 1 {
		return fmt.Errorf("--pick must be at least 1")
	}
	patch, err := buildPatch(cmd)
	if err != nil {
		return err
	}

	a, err := setupApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.Orchestrator.FindMemes(cmd.Context(), sentence)
	if len(res.Results) == 0 {
		return fmt.Errorf("no images found for %q", sentence)
	}
	if pick > len(res.Results) {
		return fmt.Errorf("--pick %d out of range, %d results", pick, len(res.Results))
	}

	sess := editor.NewSession(res.Results[pick-1], sentence, a.Renderer, a.Metrics, a.Logger)
	defer sess.Close()

	if err := sess.Load(cmd.Context(), a.Loader); err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	if _, err := sess.Update(patch); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if copyPNG, _ := cmd.Flags().GetBool("copy"); copyPNG {
		err = sess.CopyToClipboard(&editor.SystemClipboard{}, editor.PNGEncoder{})
		if err == nil {
			fmt.Fprintln(w, "copied to clipboard")
		}
	} else {
		out, _ := cmd.Flags().GetString("out")
		err = writePNG(sess, out)
		if err == nil {
			fmt.Fprintf(w, "saved %s\n", out)
		}
	}

	var exportErr *editor.ExportError
	if errors.As(err, &exportErr) {
		fmt.Fprintf(w, "this image cannot be exported, open the original instead:\n  %s\n", exportErr.OriginalURL)
		return nil
	}
	return err
}

func buildPatch(cmd *cobra.Command) (editor.Patch, error) {
	var p editor.Patch
	if cmd.Flags().Changed("text") {
		text, _ := cmd.Flags().GetString("text")
		p.Text = &text
	}
	size, _ := cmd.Flags().GetInt("font-size")
	p.FontSize = &size

	position, _ := cmd.Flags().GetString("position")
	if _, err := editor.ParsePosition(position); err != nil {
		return p, err
	}
	p.Position = &position

	color, _ := cmd.Flags().GetString("color")
	p.TextColor = &color
	stroke, _ := cmd.Flags().GetString("stroke")
	p.StrokeColor = &stroke
	return p, nil
}

// writePNG exports to path, leaving no file behind when the image is not exportable.
func writePNG(sess *editor.Session, path string) error {
	if sess.State().Tainted {
		return sess.ExportPNG(nil, editor.PNGEncoder{})
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sess.ExportPNG(f, editor.PNGEncoder{}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
