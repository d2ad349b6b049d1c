// Command docsite synthesizes the static documentation site stack and operates
// the deployed site.
//
// Usage:
//
//	docsite synth                  Synthesize the CDK app (cdk.json entry point)
//	docsite policy                 Print the deploy build's IAM policy
//	docsite buildspec              Print the deploy build script
//	docsite schedule               Print the rebuild schedule and its next runs
//	docsite outputs                Print the deployed stack's outputs
//	docsite publish                Upload generated content and invalidate the CDN
//	docsite invalidate [paths...]  Invalidate CDN paths
//	docsite version                Show version
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		a.logger().Error("command failed", map[string]any{"error": err})
		fmt.Fprintf(stderr, "docsite: FAIL: %v\n", err)
		return 1
	}
	return 0
}
