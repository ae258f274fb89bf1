package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"castline/cli/internal/backend"
	"castline/cli/internal/httperrors"
	"castline/cli/internal/logging"
	"castline/cli/internal/sse"
	"castline/cli/internal/terminal"
)

var streamOpts struct {
	method string
	body   string
	raw    bool
}

// streamCmd prints a server-sent event stream as it arrives.
var streamCmd = &cobra.Command{
	Use:   "stream ENDPOINT",
	Short: "Stream a generation from the backend",
	Long: `The stream command opens an event stream on the backend and prints each
message as it arrives until the service sends [DONE] or closes the stream.
Streams do not resume: on failure, run the command again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := parseBody(streamOpts.body)
		if err != nil {
			return err
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		interactive := terminal.IsInteractive(os.Stdout)
		if interactive {
			cursor.Hide()
			defer cursor.Show()
		}

		var (
			messages int
			failed   error
		)
		h := sse.Callbacks{
			Message: func(payload string) {
				messages++
				if streamOpts.raw {
					fmt.Println(payload)
					return
				}
				fmt.Print(payload)
			},
			Done: func() {
				if !streamOpts.raw {
					fmt.Println()
				}
				a.log.Debug("stream finished", a.log.Args("messages", messages))
			},
			Error: func(err error) { failed = err },
		}

		d := backend.Descriptor{
			Method:   strings.ToUpper(streamOpts.method),
			Endpoint: args[0],
			SSE:      h,
		}
		if body != nil {
			d.Body = body
		}
		if _, err := a.data.Backend.Request(cmd.Context(), d); err != nil {
			return httperrors.FormatNetworkError(err, "opening the stream")
		}
		if failed != nil {
			if interactive {
				cursor.Show()
			}
			logging.PresentStreamError(failed)
			return failed
		}
		if messages == 0 {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("(stream ended without messages)"))
		}
		return nil
	},
}

func init() {
	f := streamCmd.Flags()
	f.StringVar(&streamOpts.method, "method", http.MethodPost, "HTTP method")
	f.StringVar(&streamOpts.body, "body", "", "JSON request body")
	f.BoolVar(&streamOpts.raw, "raw", false, "Print one payload per line instead of joining them")
	rootCmd.AddCommand(streamCmd)
}
