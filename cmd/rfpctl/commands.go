package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/rfp-manager/internal/adapters/mail"
	"github.com/mikey/rfp-manager/internal/core"
	"github.com/mikey/rfp-manager/internal/di"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errFailed signals a non-zero exit after the result was already printed
var errFailed = errors.New("command failed")

func newRootCmd() *cobra.Command {
	flags := &di.CLIFlags{}

	root := &cobra.Command{
		Use:           "rfpctl",
		Short:         "Operator tool for the RFP manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "path to config file")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "output logs in JSON format")
	di.RegisterFlags(root.PersistentFlags())
	flags.Overrides = root.PersistentFlags()

	root.AddCommand(
		&cobra.Command{
			Use:   "poll",
			Short: "Poll the inbox once and store vendor proposals",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withService(cmd, flags, func(ctx context.Context, svc *core.Service, logger *zap.Logger) error {
					result, err := svc.PollInbox(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), result)
				})
			},
		},
		&cobra.Command{
			Use:   "diagnose",
			Short: "Check inbox settings, connectivity and vendor matching",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withService(cmd, flags, func(ctx context.Context, svc *core.Service, logger *zap.Logger) error {
					report := svc.DiagnoseInbox(ctx)
					if err := printJSON(cmd.OutOrStdout(), report); err != nil {
						return err
					}
					if !report.OK() {
						return fmt.Errorf("%w: %s: %s", errFailed, report.Step, report.Error)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "parse [file]",
			Short: "Extract proposal terms from a saved email (stdin when no file is given)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd, flags, func(ctx context.Context, svc *core.Service, logger *zap.Logger) error {
					r, closeInput, err := openInput(cmd, args)
					if err != nil {
						return err
					}
					defer closeInput()

					msg, err := mail.ParseMessage(r)
					if err != nil {
						return fmt.Errorf("failed to parse email: %w", err)
					}
					logger.Debug("Parsed email", zap.String("from", msg.From), zap.String("subject", msg.Subject))

					terms, err := svc.ParseProposal(ctx, msg.Body)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), terms)
				})
			},
		},
		&cobra.Command{
			Use:   "from-text [file]",
			Short: "Create an RFP from a plain-text request (stdin when no file is given)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd, flags, func(ctx context.Context, svc *core.Service, logger *zap.Logger) error {
					r, closeInput, err := openInput(cmd, args)
					if err != nil {
						return err
					}
					defer closeInput()

					text, err := io.ReadAll(r)
					if err != nil {
						return fmt.Errorf("failed to read input: %w", err)
					}
					rfp, err := svc.CreateRFPFromText(ctx, string(text))
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), rfp)
				})
			},
		},
	)

	return root
}

// withService builds the container, runs fn with the service and releases resources
func withService(cmd *cobra.Command, flags *di.CLIFlags, fn func(context.Context, *core.Service, *zap.Logger) error) error {
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return container.Invoke(func(svc *core.Service, logger *zap.Logger, closers di.Closers) error {
		defer logger.Sync()
		defer closers.Close()
		return fn(ctx, svc, logger)
	})
}

func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
