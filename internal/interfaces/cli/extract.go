package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

type extractOptions struct {
	documentID string
	objectKey  string
	spans      bool
	persist    bool
}

// NewExtractCmd extracts traits from files, stdin or a stored object.
func NewExtractCmd() *cobra.Command {
	o := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract [file ...]",
		Short: "Extract traits from label or treatment text",
		Long: "Reads each file (or stdin when no file or \"-\" is given) as one document\n" +
			"and prints its record. By default only the pipeline runs; --persist also\n" +
			"uses the configured cache, database, index and document store.",
		Example: "  floratraits extract label.txt\n" +
			"  echo 'Seeds [1–]3–12[–30].' | floratraits extract -o text\n" +
			"  floratraits extract --persist --key labels/BRIT-0001.txt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.documentID, "id", "", "document ID for a single document (default: file name or a new UUID)")
	f.StringVar(&o.objectKey, "key", "", "extract a stored text object instead of reading input (requires --persist)")
	f.BoolVar(&o.spans, "spans", false, "include the matched spans in JSON output")
	f.BoolVar(&o.persist, "persist", false, "connect the configured backends and store results")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string, o *extractOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if o.objectKey != "" && !o.persist {
		return errors.InvalidParam("--key needs --persist to reach the document store")
	}
	if o.documentID != "" && len(args) > 1 {
		return errors.InvalidParam("--id applies to a single document")
	}

	docs, err := readDocuments(cmd, args, o)
	if err != nil {
		return err
	}

	rt, err := NewRuntime(cmd.Context(), cliCtx.Config, cliCtx.Logger, runtimeOptions{offline: !o.persist})
	if err != nil {
		return err
	}
	defer rt.Close()

	var out []*record.Extraction
	if len(docs) == 1 {
		e, err := rt.Service.Extract(cmd.Context(), docs[0])
		if err != nil {
			return err
		}
		out = append(out, e)
	} else {
		items, err := rt.Service.ExtractBatch(cmd.Context(), docs)
		if err != nil {
			return err
		}
		failed := 0
		for _, it := range items {
			if it.Error != "" {
				failed++
				cliCtx.Logger.Warn("document failed", logging.DocumentID(it.DocumentID), logging.String("error", it.Error))
				continue
			}
			out = append(out, it.Extraction)
		}
		if failed == len(items) {
			return errors.Newf(items[0].Code, "all %d documents failed: %s", failed, items[0].Error)
		}
	}

	if !o.spans {
		for i, e := range out {
			c := *e
			c.Spans = nil
			out[i] = &c
		}
	}
	if cliCtx.OutputFormat == "text" {
		return PrintResult(cmd, recordTable(out))
	}
	if len(out) == 1 {
		return PrintResult(cmd, out[0])
	}
	return PrintResult(cmd, out)
}

func readDocuments(cmd *cobra.Command, args []string, o *extractOptions) ([]record.Document, error) {
	if o.objectKey != "" {
		return []record.Document{{ID: o.documentID, Source: record.SourceCLI, ObjectKey: o.objectKey}}, nil
	}
	if len(args) == 0 {
		args = []string{"-"}
	}

	docs := make([]record.Document, 0, len(args))
	for _, name := range args {
		var (
			data []byte
			err  error
			id   = o.documentID
		)
		if name == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(name)
			if id == "" {
				id = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
			}
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read "+name)
		}
		docs = append(docs, record.Document{ID: id, Source: record.SourceCLI, Text: string(data)})
	}
	return docs, nil
}

// recordTable renders extractions as one row per record field.
type recordTable []*record.Extraction

func (t recordTable) TableHeaders() []string { return []string{"DOCUMENT", "FIELD", "VALUE"} }

func (t recordTable) TableRows() [][]string {
	var rows [][]string
	for _, e := range t {
		if e.Record == nil || e.Record.Empty() {
			rows = append(rows, []string{e.DocumentID, "", "(no traits)"})
			continue
		}
		for _, k := range sortedKeys(e.Record.Top) {
			rows = append(rows, []string{e.DocumentID, k, fmt.Sprint(e.Record.Top[k])})
		}
		for _, k := range sortedKeys(e.Record.Dynamic) {
			rows = append(rows, []string{e.DocumentID, "dynamicProperties." + k, fmt.Sprint(e.Record.Dynamic[k])})
		}
	}
	return rows
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
