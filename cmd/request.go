package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"castline/cli/internal/backend"
	"castline/cli/internal/config"
	"castline/cli/internal/httperrors"
)

var requestOpts struct {
	params  []string
	body    string
	image   bool
	out     string
	strict  bool
	timeout time.Duration
}

// requestCmd calls one backend endpoint and prints the decoded response.
var requestCmd = &cobra.Command{
	Use:   "request METHOD ENDPOINT",
	Short: "Call a backend API endpoint",
	Long: `The request command calls the Castline backend. Callers with both a user UUID
and a purchase ID stored (see 'castline identity set') are routed to the
privileged service.

By default the status code is reported but not treated as a failure. With
--strict the call is de-duplicated by URL, bounded by the request timeout and
fails on any non-2xx status.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(requestOpts.params)
		if err != nil {
			return err
		}
		body, err := parseBody(requestOpts.body)
		if err != nil {
			return err
		}
		if requestOpts.timeout > 0 {
			requestOpts.strict = true
		}

		a, err := newApp(cmd, func(c *config.Config) {
			if requestOpts.timeout > 0 {
				c.API.RequestTimeout = config.Duration(requestOpts.timeout)
			}
		})
		if err != nil {
			return err
		}
		defer a.Close()

		d := backend.Descriptor{
			Method:   strings.ToUpper(args[0]),
			Endpoint: args[1],
			Params:   params,
			Image:    requestOpts.image,
		}
		if body != nil {
			d.Body = body
		}

		stop := spin(d.Method + " " + d.Endpoint)
		var res backend.Result
		if requestOpts.strict {
			res, err = a.data.Backend.Do(cmd.Context(), d)
		} else {
			res, err = a.data.Backend.Request(cmd.Context(), d)
		}
		stop()
		if err != nil {
			return httperrors.FormatNetworkError(err, "calling "+d.Endpoint)
		}
		return printResult(res)
	},
}

func printResult(res backend.Result) error {
	if !res.OK() {
		pterm.Warning.Printfln("HTTP %d %s", res.Status, http.StatusText(res.Status))
	}
	switch res.Kind {
	case backend.KindImage:
		if requestOpts.out == "" {
			pterm.Printfln("Received %d bytes of image/png; use --out to save it", len(res.Bytes))
			return nil
		}
		if err := os.WriteFile(requestOpts.out, res.Bytes, 0o644); err != nil {
			return err
		}
		pterm.Success.Printfln("Saved %s", requestOpts.out)
	case backend.KindJSON:
		var v any
		if err := json.Unmarshal(res.JSON, &v); err != nil {
			return err
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
	default:
		fmt.Println(res.Text)
	}
	return nil
}

func init() {
	f := requestCmd.Flags()
	f.StringArrayVar(&requestOpts.params, "param", nil, "Query parameter key=value for GET and DELETE (repeatable)")
	f.StringVar(&requestOpts.body, "body", "", "JSON request body")
	f.BoolVar(&requestOpts.image, "image", false, "Ask for an image/png response")
	f.StringVar(&requestOpts.out, "out", "", "File to write an image response to")
	f.BoolVar(&requestOpts.strict, "strict", false, "Fail on non-2xx, de-duplicate by URL and apply the request timeout")
	f.DurationVar(&requestOpts.timeout, "timeout", 0, "Request timeout (implies --strict; default from config)")
	rootCmd.AddCommand(requestCmd)
}
