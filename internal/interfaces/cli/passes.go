package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/FloraTraits/internal/intelligence/pipeline"
)

// PipelineInfo describes the configured pass sequence.
type PipelineInfo struct {
	Fingerprint string   `json:"fingerprint"`
	Gazetteer   string   `json:"gazetteer"`
	Passes      []string `json:"passes"`
}

func (p PipelineInfo) TableHeaders() []string { return []string{"#", "PASS"} }

func (p PipelineInfo) TableRows() [][]string {
	rows := make([][]string, len(p.Passes))
	for i, name := range p.Passes {
		rows[i] = []string{strconv.Itoa(i + 1), name}
	}
	return rows
}

// NewPassesCmd prints the pass sequence the configuration produces.
func NewPassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passes",
		Short: "List the pipeline passes in run order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			p, err := pipeline.New(pipeline.OptionsFrom(cliCtx.Config.Pipeline), cliCtx.Logger)
			if err != nil {
				return err
			}
			return PrintResult(cmd, PipelineInfo{
				Fingerprint: p.Fingerprint(),
				Gazetteer:   p.Gazetteer().String(),
				Passes:      p.PassNames(),
			})
		},
	}
}
