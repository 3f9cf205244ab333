// Command knowledgectl is the operator CLI for the knowledge service:
// inspect a stuck resource or search and requeue it into its next pipeline
// stage, grounded on codenerd's cobra-based command tree
// (cmd/nerd/cmd_transparency.go) generalized from kernel introspection
// commands to pipeline repair commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"knowledgeservice/internal/bootstrap"
	"knowledgeservice/internal/config"
	"knowledgeservice/internal/usecases"
)

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "knowledgectl",
		Short: "Operator tooling for the knowledge service's ingest and query pipelines",
	}
	root.AddCommand(resourceCmd())
	root.AddCommand(searchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Inspect or repair a resource stuck in the ingest pipeline",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <resource-id>",
		Short: "Print a resource's current pipeline status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			runtime, err := withRuntime(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			resource, err := usecases.GetResource(ctx, runtime.Registry, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("id=%s status=%s file_type=%s error=%q\n", resource.ID, resource.Status, resource.FileType, resource.Error)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "requeue <resource-id> <stage>",
		Short: "Re-enqueue a resource onto the named ingest stage",
		Long: "Valid stages: " + usecases.StageInitiateProcessing + ", " + usecases.StageInitialiseResourceGraph + ", " +
			usecases.StageExtractPlainText + ", " + usecases.StageChunkResourceText + ", " +
			usecases.StageUpdateChunkEmbeddings + ", " + usecases.StageVentilateResource,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			runtime, err := withRuntime(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Registry.Dispatch.Enqueue(ctx, args[1], args[0]); err != nil {
				return err
			}
			fmt.Printf("requeued resource %s onto stage %s\n", args[0], args[1])
			return nil
		},
	})
	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Inspect or repair a search stuck in the query pipeline",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <search-id>",
		Short: "Print a search request's current pipeline status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			runtime, err := withRuntime(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			search, err := usecases.GetSearchMetadata(ctx, runtime.Registry, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("id=%s status=%s error=%q\n", search.ID, search.Status, search.Error)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "requeue <search-id> <stage>",
		Short: "Re-enqueue a search request onto the named query stage",
		Long: "Valid stages: " + usecases.StageInitiateSearchRequest + ", " + usecases.StageVectoriseSearchQuery + ", " +
			usecases.StageIdentifyRelatedContent + ", " + usecases.StageExecuteRagPrompt + ", " +
			usecases.StageIssueCredentials + ", " + usecases.StageVentilateSearch,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			runtime, err := withRuntime(ctx)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Registry.Dispatch.EnqueueSearchStage(ctx, args[1], args[0]); err != nil {
				return err
			}
			fmt.Printf("requeued search %s onto stage %s\n", args[0], args[1])
			return nil
		},
	})
	return cmd
}

func withRuntime(ctx context.Context) (*bootstrap.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	runtime, _, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return runtime, nil
}
