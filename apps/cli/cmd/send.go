package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/restspec/packages/client"
	"github.com/abdul-hamid-achik/restspec/packages/core/config"
	"github.com/abdul-hamid-achik/restspec/packages/expect"
	"github.com/abdul-hamid-achik/restspec/packages/history"
	"github.com/abdul-hamid-achik/restspec/packages/proxy"
)

var sendFlags struct {
	method       string
	headers      []string
	queries      []string
	body         string
	contentType  string
	timeoutMS    int
	proxyURL     string
	expectStatus int
	historyPath  string
	configFile   string
	verbose      bool
	debug        bool
	noColor      bool
}

var sendCmd = &cobra.Command{
	Use:   "send <url>",
	Short: "Send a one-off request through the pipeline",
	Long: `Send a single HTTP request and print the response. The request runs
through the full pipeline: layered configuration, proxy resolution, body
encoding by content type, and optional expectations.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runSend(cmd, args[0]))
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringVarP(&sendFlags.method, "method", "X", "GET", "HTTP method")
	f.StringArrayVarP(&sendFlags.headers, "header", "H", nil, "request header, key:value (repeatable)")
	f.StringArrayVarP(&sendFlags.queries, "query", "q", nil, "query parameter, key=value (repeatable)")
	f.StringVarP(&sendFlags.body, "data", "d", "", "request body")
	f.StringVar(&sendFlags.contentType, "content-type", "application/json", "body content type")
	f.IntVar(&sendFlags.timeoutMS, "timeout", 0, "request timeout in milliseconds")
	f.StringVar(&sendFlags.proxyURL, "proxy", "", "proxy URL (http:// or https://)")
	f.IntVar(&sendFlags.expectStatus, "expect-status", 0, "fail unless the response has this status")
	f.StringVar(&sendFlags.historyPath, "history", "", "record the exchange to this SQLite file")
	f.StringVar(&sendFlags.configFile, "config", "", "config file (default "+config.DefaultConfigFile+" if present)")
	f.BoolVarP(&sendFlags.verbose, "verbose", "v", false, "log request and response summaries")
	f.BoolVar(&sendFlags.debug, "debug", false, "log full request and response detail")
	f.BoolVar(&sendFlags.noColor, "no-color", false, "disable colored output")
}

func runSend(cmd *cobra.Command, target string) int {
	if sendFlags.noColor {
		color.NoColor = true
	}
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	override, code := sendOverride()
	if code != ExitSuccess {
		return code
	}

	opts := []client.Option{client.WithOverrides(override)}
	if sendFlags.historyPath != "" {
		store, err := history.Open(sendFlags.historyPath)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", red("Error:"), err)
			return ExitConfigError
		}
		defer store.Close()
		opts = append(opts, client.WithObserver(store))
	}

	b, err := client.New(opts...)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", red("Error:"), err)
		return ExitConfigError
	}

	for _, h := range sendFlags.headers {
		key, value, found := strings.Cut(h, ":")
		if !found {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s header %q is not key:value\n", red("Error:"), h)
			return ExitUsageError
		}
		b.GivenHeader(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for _, q := range sendFlags.queries {
		key, value, found := strings.Cut(q, "=")
		if !found {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s query %q is not key=value\n", red("Error:"), q)
			return ExitUsageError
		}
		b.GivenQueryParam(key, value)
	}
	if sendFlags.body != "" {
		b.GivenBody(sendFlags.body, sendFlags.contentType)
	}
	if sendFlags.proxyURL != "" {
		if err := b.SetProxy(proxy.URL(sendFlags.proxyURL)); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", red("Error:"), err)
			return ExitConfigError
		}
	}

	var v *expect.Validator
	switch strings.ToUpper(sendFlags.method) {
	case "GET":
		v = b.WhenGet(target)
	case "POST":
		v = b.WhenPost(target)
	case "PUT":
		v = b.WhenPut(target)
	case "PATCH":
		v = b.WhenPatch(target)
	case "DELETE":
		v = b.WhenDelete(target)
	case "HEAD":
		v = b.WhenHead(target)
	case "OPTIONS":
		v = b.WhenOptions(target)
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "%s unsupported method %q\n", red("Error:"), sendFlags.method)
		return ExitUsageError
	}

	if v.WasFailure() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", red("Transport failure:"), v.ErrorBody())
		return ExitTransportError
	}

	resp := v.Response()
	statusLine := fmt.Sprintf("%d %s", resp.StatusCode, strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))))
	paint := green
	if resp.StatusCode >= 400 {
		paint = red
	} else if resp.StatusCode >= 300 {
		paint = yellow
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%dms)\n", paint(statusLine), resp.DurationMs())
	if len(resp.Body) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), resp.BodyString())
	}

	if sendFlags.expectStatus != 0 {
		if err := v.ThenExpectStatus(sendFlags.expectStatus); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\n%v\n", red("Expectation failed:"), err)
			return ExitExpectationFailure
		}
	}
	return ExitSuccess
}

// sendOverride builds the per-invocation configuration override from flags
// and an optional config file.
func sendOverride() (*config.Override, int) {
	var override *config.Override

	path := sendFlags.configFile
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigFile); err == nil {
			path = config.DefaultConfigFile
		}
	}
	if path != "" {
		fileOverride, err := config.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return nil, ExitConfigError
		}
		override = fileOverride
	}
	if override == nil {
		override = &config.Override{}
	}

	if sendFlags.timeoutMS > 0 {
		d := time.Duration(sendFlags.timeoutMS) * time.Millisecond
		override.Timeout = &d
	}
	level := "none"
	if sendFlags.debug {
		level = "debug"
	} else if sendFlags.verbose {
		level = "info"
	}
	override.LogLevel = &level

	return override, ExitSuccess
}
