package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gqlrelay/internal/core"
)

var (
	queryFile      string
	queryVariables string
	queryVars      []string
	queryOperation string
)

var queryCmd = &cobra.Command{
	Use:   "query [document]",
	Short: "Send a single GraphQL request",
	Long: `Send a single GraphQL request through the configured middleware chain and
print the response. The document is read from the argument, --file, or stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		document, err := readDocument(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		variables, err := parseVariables(queryVariables, queryVars)
		if err != nil {
			return err
		}

		// stdout carries the response
		cfg, log, err := loadRuntime("stderr")
		if err != nil {
			return err
		}
		defer log.Sync()

		stopTracing, err := initTracing(cfg, cmd.ErrOrStderr(), log)
		if err != nil {
			return err
		}
		defer stopTracing()

		pipeline, err := buildPipeline(cfg, log)
		if err != nil {
			return err
		}

		req, err := core.NewRequest(document, variables, queryOperation)
		if err != nil {
			return err
		}

		resp, err := pipeline.Dispatch(cmd.Context(), req)
		if err != nil {
			reportFailure(cmd.OutOrStdout(), err, log)
			return err
		}
		return printResponse(cmd.OutOrStdout(), resp)
	},
}

func SetupQueryCmd() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "read the document from a file")
	queryCmd.Flags().StringVar(&queryVariables, "variables", "", "variables as a JSON object")
	queryCmd.Flags().StringArrayVarP(&queryVars, "var", "v", nil, "variable as key=value (repeatable)")
	queryCmd.Flags().StringVarP(&queryOperation, "operation", "o", "", "operation name")
}

func readDocument(args []string, stdin io.Reader) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case queryFile != "":
		b, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("failed to read document: %w", err)
		}
		return string(b), nil
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read document: %w", err)
		}
		if strings.TrimSpace(string(b)) == "" {
			return "", fmt.Errorf("no document given")
		}
		return string(b), nil
	}
}

// parseVariables merges a JSON object with key=value pairs; pairs win and are
// decoded as JSON when possible, otherwise kept as strings
func parseVariables(raw string, pairs []string) (map[string]interface{}, error) {
	variables := make(map[string]interface{})
	if raw != "" {
		if err := sonic.UnmarshalString(raw, &variables); err != nil {
			return nil, fmt.Errorf("invalid --variables: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", pair)
		}
		var decoded interface{}
		if err := sonic.UnmarshalString(value, &decoded); err != nil {
			decoded = value
		}
		variables[key] = decoded
	}
	return variables, nil
}

// reportFailure prints the upstream reply carried by a RequestError, if any
func reportFailure(w io.Writer, err error, log *zap.Logger) {
	if reqErr, ok := core.AsRequestError(err); ok && reqErr.Response != nil {
		if printErr := printResponse(w, reqErr.Response); printErr != nil {
			log.Debug("failed to print response", zap.Error(printErr))
		}
	}
	log.Debug("query failed", zap.Error(err))
}

func printResponse(w io.Writer, resp *core.Response) error {
	out, err := resp.JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
