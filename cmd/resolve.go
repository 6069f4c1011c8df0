package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/giygas/meditrust-api/matching"
)

// errResolveFailed is returned once the error line has been written
var errResolveFailed = errors.New("resolve failed")

var resolveCmd = &cobra.Command{
	Use:   "resolve <image>",
	Short: "Identify the medicine on a package photo",
	Long: `Read the text on a package photo, identify the medicine and its closest
generic alternative, and print the result as one JSON line.

An image where no medicine is recognized prints {}. Failures print
{"error": "..."} and exit with status 1.

Examples:
  meditrust resolve strip.jpg
  meditrust resolve --env-file prod.env photos/dolo.png`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{consoleAnnotation: "stderr"},
	RunE:        runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	p, err := buildPipeline(cmd.Context(), cfg, false)
	if err != nil {
		return writeResolveError(out, err)
	}
	defer p.Close()

	identification, err := p.identifier.IdentifyImage(cmd.Context(), args[0])
	if err != nil {
		return writeResolveError(out, err)
	}

	return writeResult(out, identification.Result.Payload())
}

// writeResult prints the payload as one JSON line, {} when nothing was found
func writeResult(w io.Writer, payload *matching.ResultPayload) error {
	if payload == nil {
		_, err := fmt.Fprintln(w, "{}")
		return err
	}
	return json.NewEncoder(w).Encode(payload)
}

func writeResolveError(w io.Writer, cause error) error {
	if err := json.NewEncoder(w).Encode(map[string]string{"error": cause.Error()}); err != nil {
		return err
	}
	return fmt.Errorf("%w: %w", errResolveFailed, cause)
}
