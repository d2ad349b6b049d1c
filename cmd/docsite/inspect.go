package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theory-cloud/docsite/pkg/buildspec"
	"github.com/theory-cloud/docsite/pkg/permissions"
)

const (
	accountPlaceholder = "${AWS::AccountId}"
	regionPlaceholder  = "${AWS::Region}"
)

func (a *app) policyCmd() *cobra.Command {
	var accountWide bool

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Print the IAM policy granted to the deploy build",
		Long: `Policy prints the deploy build role's statements as an IAM policy document.

Account and region fall back to CloudFormation pseudo parameters when the
configuration leaves them unset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statements, err := permissions.ForResources(a.permissionScope(), a.cfg.ManagedResources())
			if err != nil {
				return err
			}
			if accountWide {
				statements = permissions.AccountWide(statements)
			}
			return a.printJSON(permissions.Document(statements))
		},
	}

	cmd.Flags().BoolVar(&accountWide, "account-wide", false, "only print statements granted on every resource")

	return cmd
}

func (a *app) permissionScope() permissions.Scope {
	account := a.cfg.Account
	if account == "" {
		account = accountPlaceholder
	}
	region := a.cfg.Region
	if region == "" {
		region = regionPlaceholder
	}
	return permissions.Scope{
		Account:     account,
		Region:      region,
		StackName:   a.cfg.StackName,
		ProjectName: a.cfg.ProjectName(),
		BucketArn:   "arn:aws:s3:::" + a.cfg.BucketName,
	}
}

func (a *app) buildspecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buildspec",
		Short: "Print the deploy build script as buildspec.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := buildspec.Render(a.cfg.ScriptOptions())
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}
}

func (a *app) scheduleCmd() *cobra.Command {
	var (
		count int
		after string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the rebuild schedule and its upcoming runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sched, err := a.cfg.Schedule()
			if err != nil {
				return err
			}

			start := time.Now().UTC()
			if after != "" {
				start, err = time.Parse(time.RFC3339, after)
				if err != nil {
					return fmt.Errorf("--after: %w", err)
				}
			}
			runs, err := sched.Upcoming(start, count)
			if err != nil {
				return err
			}

			fmt.Fprintln(a.stdout, sched.Expression())
			for _, r := range runs {
				fmt.Fprintln(a.stdout, r.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of upcoming runs to print")
	cmd.Flags().StringVar(&after, "after", "", "RFC3339 start time (default now)")

	return cmd
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}
