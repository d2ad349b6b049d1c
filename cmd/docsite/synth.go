package main

import (
	"github.com/spf13/cobra"

	"github.com/theory-cloud/docsite/cdk/stack"
)

func (a *app) synthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "synth",
		Short: "Synthesize the CDK app into a cloud assembly",
		Long: `Synth declares the site and pipeline stack and writes the cloud assembly
to the directory the cdk CLI passes in CDK_OUTDIR.

Pass "-c deployDistribution=false" to cdk to skip the CloudFront distribution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cdkApp, s, err := stack.NewApp(a.cfg, nil)
			if err != nil {
				return err
			}
			asm := stack.Synth(cdkApp)
			a.log.Info("synthesized stack", map[string]any{
				"stack":        *s.StackName(),
				"distribution": s.Site().Distribution() != nil,
				"directory":    *asm.Directory(),
			})
			return nil
		},
	}
}
