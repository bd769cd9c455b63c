package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"nessql/client"
	"nessql/config"
	"nessql/logger"
	"nessql/models"
	"nessql/session"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	shellURL     string
	shellTimeout time.Duration
)

const shellHelp = `Commands:
  dbs                     reload the database list (selects the first)
  use <db>                select a database and show its statistics
  stats                   reload statistics for the selected database
  query <sql>             run SQL against the selected database
  <sql>                   lines starting with SELECT, WITH or PRAGMA run as a query
  table                   show the last result table again
  open <row> <col>        open the plugin in a [plugin_name] cell
  plugin <name>           open a plugin by name
  severity <value>        set the pending severity (0-5 or a label)
  save                    save the pending severity
  close                   close the plugin detail
  upload <file.nessus>    upload a scan and create a database
  help                    show this help
  quit                    leave the shell`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive analyst session against a running server",
	Long: `Starts an interactive session against the nessql API. Select a database,
run SQL, drill into plugins by name and override their severity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL := shellURL
		if !cmd.Flags().Changed("url") {
			baseURL = config.AppConfig.Client.BaseURL
		}
		logger.SetErrorOutput(io.Discard)

		out := cmd.OutOrStdout()
		sh := newShell(client.New(baseURL, &http.Client{Timeout: shellTimeout}), out)
		fmt.Fprintf(out, "Connected to %s. Type 'help' for commands.\n", baseURL)
		return sh.run(cmd.Context(), cmd.InOrStdin())
	},
}

type shell struct {
	s   *session.Session
	out io.Writer
}

func newShell(backend session.Backend, out io.Writer) *shell {
	return &shell{s: session.New(backend, newTermPresenter(out)), out: out}
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	sh.s.Start(ctx)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprintf(sh.out, "%s> ", sh.prompt())
		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			return scanner.Err()
		}
		if quit := sh.exec(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

func (sh *shell) prompt() string {
	db := sh.s.CurrentDatabase()
	if db == "" {
		db = "nessql"
	}
	if st := sh.s.Detail.State(); st != session.DetailClosed {
		return fmt.Sprintf("%s [%s]", db, st)
	}
	return db
}

// exec runs one input line. Session errors have already been shown to the
// analyst by the presenter; only usage errors are printed here.
func (sh *shell) exec(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "quit", "exit", `\q`:
		return true
	case "help", "?":
		fmt.Fprintln(sh.out, shellHelp)
	case "dbs", "databases", "refresh":
		sh.s.RefreshDatabases(ctx)
	case "use":
		if rest == "" {
			sh.usage("use <db>")
			return false
		}
		sh.s.SelectDatabase(ctx, rest)
	case "stats":
		sh.s.LoadStatistics(ctx)
	case "query":
		if rest == "" {
			sh.usage("query <sql>")
			return false
		}
		sh.s.RunQuery(ctx, rest)
	case "select", "with", "pragma":
		sh.s.RunQuery(ctx, line)
	case "table":
		t := sh.s.Results.Table()
		if t.Summary == "" {
			fmt.Fprintln(sh.out, "No query has been run yet.")
			return false
		}
		newTermPresenter(sh.out).ShowResults(t)
	case "open":
		row, col, err := parseCellRef(rest)
		if err != nil {
			sh.usage("open <row> <col>")
			return false
		}
		if err := sh.s.ActivateCell(ctx, row, col); errors.Is(err, session.ErrNoCell) || errors.Is(err, session.ErrNotALink) {
			fmt.Fprintf(sh.out, "! %v\n", err)
		}
	case "plugin":
		if rest == "" {
			sh.usage("plugin <name>")
			return false
		}
		sh.s.OpenPlugin(ctx, rest)
	case "severity", "sev":
		sev, err := models.ParseSeverity(rest)
		if err != nil {
			fmt.Fprintf(sh.out, "! %v\n", err)
			return false
		}
		sh.s.EditSeverity(sev)
	case "save":
		sh.s.SavePlugin(ctx)
	case "close":
		sh.s.ClosePlugin()
	case "upload":
		if rest == "" {
			sh.usage("upload <file.nessus>")
			return false
		}
		sh.upload(ctx, rest)
	default:
		fmt.Fprintf(sh.out, "! Unknown command %q. Type 'help' for commands.\n", verb)
	}
	return false
}

func (sh *shell) upload(ctx context.Context, path string) {
	if !strings.HasSuffix(path, session.NessusExtension) {
		sh.s.Upload(ctx, path, strings.NewReader(""))
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(sh.out, "! %v\n", err)
		return
	}
	defer f.Close()
	sh.s.Upload(ctx, path, f)
}

func (sh *shell) usage(u string) {
	fmt.Fprintf(sh.out, "usage: %s\n", u)
}

func parseCellRef(s string) (row, col int, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, errors.New("expected row and column")
	}
	if row, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, err
	}
	if col, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, err
	}
	return row, col, nil
}

func init() {
	shellCmd.Flags().StringVar(&shellURL, "url", "http://localhost:5000/api", "base URL of the nessql API (overrides config)")
	shellCmd.Flags().DurationVar(&shellTimeout, "timeout", 2*time.Minute, "per-request timeout")
	rootCmd.AddCommand(shellCmd)
}
