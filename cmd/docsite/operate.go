package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theory-cloud/docsite/pkg/publish"
)

func (a *app) outputsCmd() *cobra.Command {
	var stackName string

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print the deployed stack's bucket and distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.newClients(cmd.Context(), a.cfg.Region)
			if err != nil {
				return err
			}
			targets, err := publish.ResolveTargets(cmd.Context(), c.CloudFormation, a.stackName(stackName))
			if err != nil {
				return err
			}
			return a.printJSON(targets)
		},
	}

	cmd.Flags().StringVar(&stackName, "stack", "", "stack name (default from config)")

	return cmd
}

func (a *app) publishCmd() *cobra.Command {
	var (
		stackName   string
		dir         string
		concurrency int
		invalidate  bool
		wait        bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload generated content and invalidate the CDN cache",
		Long: `Publish uploads every file under the content directory to the site bucket
with a public-read ACL, then invalidates the distribution when the stack has one.

It performs the sync and invalidate steps of the deploy build from a workstation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.newClients(ctx, a.cfg.Region)
			if err != nil {
				return err
			}
			targets, err := publish.ResolveTargets(ctx, c.CloudFormation, a.stackName(stackName))
			if err != nil {
				return err
			}

			script := a.cfg.ScriptOptions().WithDefaults()
			if dir == "" {
				dir = script.ContentDir
			}
			syncer := &publish.Syncer{
				Uploader:    c.Uploader,
				Concurrency: concurrency,
			}
			report, err := syncer.Sync(ctx, dir, targets.BucketName)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "uploaded %d objects (%d bytes) to s3://%s\n", len(report.Keys), report.Bytes, report.Bucket)

			if !invalidate || !targets.HasDistribution() {
				return nil
			}
			inv := &publish.Invalidator{Client: c.CloudFront, Wait: wait}
			result, err := inv.Invalidate(ctx, targets.DistributionID, script.InvalidationPaths)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "invalidation %s on %s: %s\n", result.ID, result.DistributionID, result.Status)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&stackName, "stack", "", "stack name (default from config)")
	flags.StringVarP(&dir, "dir", "d", "", "content directory (default from config)")
	flags.IntVar(&concurrency, "concurrency", publish.DefaultConcurrency, "parallel uploads")
	flags.BoolVar(&invalidate, "invalidate", true, "invalidate the distribution after uploading")
	flags.BoolVar(&wait, "wait", false, "wait for the invalidation to complete")

	return cmd
}

func (a *app) invalidateCmd() *cobra.Command {
	var (
		stackName      string
		distributionID string
		wait           bool
	)

	cmd := &cobra.Command{
		Use:   "invalidate [paths...]",
		Short: "Invalidate CDN paths",
		Long: `Invalidate submits a CloudFront invalidation for the given paths, or for the
configured invalidation paths when none are given.

Examples:
    docsite invalidate
    docsite invalidate /index.html "/reference/*" --wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.newClients(ctx, a.cfg.Region)
			if err != nil {
				return err
			}
			if distributionID == "" {
				targets, err := publish.ResolveTargets(ctx, c.CloudFormation, a.stackName(stackName))
				if err != nil {
					return err
				}
				if !targets.HasDistribution() {
					return fmt.Errorf("stack %s has no distribution", targets.StackName)
				}
				distributionID = targets.DistributionID
			}

			paths := args
			if len(paths) == 0 {
				paths = a.cfg.ScriptOptions().WithDefaults().InvalidationPaths
			}
			inv := &publish.Invalidator{Client: c.CloudFront, Wait: wait}
			result, err := inv.Invalidate(ctx, distributionID, paths)
			if err != nil {
				return err
			}
			return a.printJSON(result)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&stackName, "stack", "", "stack name (default from config)")
	flags.StringVar(&distributionID, "distribution-id", "", "distribution id (default from stack outputs)")
	flags.BoolVar(&wait, "wait", false, "wait for the invalidation to complete")

	return cmd
}

func (a *app) stackName(flag string) string {
	if s := strings.TrimSpace(flag); s != "" {
		return s
	}
	return a.cfg.StackName
}
