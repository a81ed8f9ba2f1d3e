package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stratadb/strata/agg"
	"github.com/stratadb/strata/api/client"
	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/summarize"
	"github.com/stratadb/strata/table"
)

var (
	sumInput      string
	sumKeys       []string
	sumAggs       []string
	sumTo         string
	sumManaged    bool
	sumMethod     int
	sumComposite  bool
	sumService    string
	sumBatchSize  int
	sumLogLevel   string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "aggregate a table and land the result",
	Long: `
Summarize runs the given aggregate assignments over a table and lands
the result.  Without -to the result is printed to stdout; with -to it
is written to the named table; with -managed it is written to a new
managed table whose location is printed.

Assignments have the form name=func(field), with n() for row counts:

  strata summarize -i events.ndjson -k region -a total=sum(bytes) -a c=n()
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSummarize(cmd.Context())
	},
}

func init() {
	summarizeCmd.Flags().StringVarP(&sumInput, "input", "i", "", "input table URI")
	summarizeCmd.Flags().StringSliceVarP(&sumKeys, "key", "k", nil, "grouping key (may be repeated)")
	summarizeCmd.Flags().StringSliceVarP(&sumAggs, "agg", "a", nil, "aggregate assignment name=func(field) (may be repeated)")
	summarizeCmd.Flags().StringVar(&sumTo, "to", "", "output table path")
	summarizeCmd.Flags().BoolVar(&sumManaged, "managed", false, "write the result to a new managed table")
	summarizeCmd.Flags().IntVarP(&sumMethod, "method", "m", 0, "explicit execution method 1-5 (0 selects automatically)")
	summarizeCmd.Flags().BoolVar(&sumComposite, "composite", false, "input is a sharded table prefix")
	summarizeCmd.Flags().StringVar(&sumService, "service", "", "URL of the intermediary service")
	summarizeCmd.Flags().String("scratch-dir", "", "local scratch table directory")
	summarizeCmd.Flags().String("managed-dir", "", "local managed table directory")
	summarizeCmd.Flags().IntVar(&sumBatchSize, "batch-size", 0, "rows per composite shard")
	summarizeCmd.Flags().StringVar(&sumLogLevel, "log-level", "warn", "logging level")
	bindFlags(summarizeCmd, "scratch-dir", "managed-dir")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(ctx context.Context) error {
	if sumInput == "" {
		return fmt.Errorf("no input table (-i)")
	}
	if len(sumAggs) == 0 {
		return fmt.Errorf("no aggregate assignments (-a)")
	}
	if sumTo != "" && sumManaged {
		return fmt.Errorf("-to and -managed are mutually exclusive")
	}
	spec, err := parseSpec(sumAggs)
	if err != nil {
		return err
	}
	input, err := storage.ParseURI(sumInput)
	if err != nil {
		return err
	}
	logger, err := newLogger(sumLogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()
	sess := &summarize.Session{
		Local:       storage.NewFileSystem(),
		Distributed: storage.NewS3(),
		Config: summarize.Config{
			ScratchDir: viper.GetString("scratch-dir"),
			ManagedDir: viper.GetString("managed-dir"),
			BatchSize:  sumBatchSize,
		},
		Logger: logger,
	}
	if sumService != "" {
		sess.Remote = client.NewConnectionTo(sumService)
	}
	target := summarize.ToMemory()
	switch {
	case sumTo != "":
		target = summarize.ToPath(sumTo)
	case sumManaged:
		target = summarize.Target{}
	}
	res, err := sess.Summarize(ctx, &summarize.Request{
		Input:  table.New(input, sumComposite, sumKeys),
		Aggs:   spec,
		Target: target,
		Method: sumMethod,
	})
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if res.Rep == summarize.RepMemory {
		return printFrame(res.Frame)
	}
	fmt.Println(res.Table.URI)
	return nil
}

// parseSpec parses name=func(field) assignments; n() is the counting
// builtin and takes no field.
func parseSpec(args []string) (agg.Spec, error) {
	var spec agg.Spec
	for _, s := range args {
		name, expr, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%q: want name=func(field)", s)
		}
		fn, rest, ok := strings.Cut(expr, "(")
		if !ok || !strings.HasSuffix(rest, ")") {
			return nil, fmt.Errorf("%q: want name=func(field)", s)
		}
		arg := strings.TrimSuffix(rest, ")")
		if fn == "n" && arg == "" {
			spec = append(spec, agg.Assignment{Name: name, Expr: &agg.Count{}})
			continue
		}
		spec = append(spec, agg.Assignment{Name: name, Expr: agg.NewCall(fn, arg)})
	}
	return spec, nil
}

func printFrame(f *table.Frame) error {
	w := table.NewWriter(nopCloser{os.Stdout}, f.Columns)
	for _, row := range f.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
