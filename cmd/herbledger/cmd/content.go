package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/herbledger/cmd/herbledger/cmd/cmdutil"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/content"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

var contentStage string

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Store and fetch content-addressed documents",
}

var contentPutCmd = &cobra.Command{
	Use:   "put [file]",
	Short: "Store a file (or stdin with -) and print its content id",
	Long: `Stores the file in the local content store. With --stage the file is first
validated as that stage's metadata document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		bundle, err := cmdutil.NewBundle(cfg, logger, cmdutil.BundleOptions{})
		if err != nil {
			return err
		}
		defer bundle.Close()

		if contentStage != "" {
			stage, err := custody.ParseStage(contentStage)
			if err != nil {
				return err
			}
			if _, err := bundle.Validator.Validate(stage, data); err != nil {
				return err
			}
		}

		id, err := bundle.Content.Put(context.Background(), data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), content.URI(id))
		return nil
	},
}

var contentGetCmd = &cobra.Command{
	Use:   "get [cid]",
	Short: "Write stored content to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := cmdutil.NewBundle(cfg, logger, cmdutil.BundleOptions{})
		if err != nil {
			return err
		}
		defer bundle.Close()

		data, err := bundle.Content.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(contentCmd)
	contentCmd.AddCommand(contentPutCmd)
	contentCmd.AddCommand(contentGetCmd)
	contentPutCmd.Flags().StringVar(&contentStage, "stage", "", "Validate as this stage's metadata document before storing")
}
