package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/proforma-verifier/constants"
	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/entity"
	"github.com/joseph-ayodele/proforma-verifier/internal/export"
)

type verifyOutput struct {
	RequestID string                    `json:"requestId"`
	File      string                    `json:"file"`
	Valid     bool                      `json:"valid"`
	Result    entity.VerificationResult `json:"result"`
}

func newVerifyCommand(a *app) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "verify <file.pdf>",
		Short: "Verify one proforma invoice and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !constants.IsAllowedExt(filepath.Ext(path)) {
				return common.NewAppError(common.CodeUnsupportedType,
					fmt.Sprintf("only PDF files are supported, got %q", path), common.ErrInvalidInput)
			}

			ctx, rid := common.EnsureRequestID(cmd.Context())
			verifier, closeFn, err := a.buildVerifier(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			res, err := verifier.VerifyFile(ctx, path, constants.MimePDF)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(verifyOutput{
				RequestID: rid,
				File:      path,
				Valid:     res.Valid(),
				Result:    res,
			}, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if xlsxPath != "" {
				b, err := export.NewService(a.logger).VerificationXLSX(res, export.Meta{
					RequestID:  rid,
					FileName:   filepath.Base(path),
					VerifiedAt: time.Now(),
				})
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsxPath, b, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", xlsxPath, err)
				}
				a.logger.Info("export.xlsx.written", "req_id", rid, "path", xlsxPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the result workbook to this path")
	return cmd
}
